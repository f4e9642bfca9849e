// Package sheets is a small authenticated client for the Google Sheets v4
// values API.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/wqlog/wqlog/pkg/credentials"
)

// DefaultBaseURL is the spreadsheets collection of the Sheets v4 API.
const DefaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// Operation names carried by DeliveryError.
const (
	OpAppend = "append"
	OpWrite  = "write"
	OpRead   = "read"
)

// Target addresses a range of cells.
type Target struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Tab           string `json:"tab"`
	Range         string `json:"range"`
}

// A1 returns the range in A1 notation, e.g. "Sheet1!A1:D1".
func (t Target) A1() string {
	return t.Tab + "!" + t.Range
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.SpreadsheetID, t.A1())
}

// TokenSource supplies bearer tokens.
type TokenSource interface {
	Token() (credentials.BearerToken, error)
}

// Client sends authenticated value requests. It never retries.
type Client struct {
	tokens    TokenSource
	transport Transport
	baseURL   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func NewClient(tokens TokenSource, transport Transport, opts ...Option) *Client {
	c := &Client{
		tokens:    tokens,
		transport: transport,
		baseURL:   DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type valueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
		UpdatedRows  int    `json:"updatedRows"`
	} `json:"updates"`
}

func (c *Client) valuesURL(t Target) string {
	return fmt.Sprintf("%s/%s/values/%s!%s", c.baseURL, url.PathEscape(t.SpreadsheetID), url.PathEscape(t.Tab), t.Range)
}

func (c *Client) header() (http.Header, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok.Value)
	h.Set("Content-Type", "application/json")
	return h, nil
}

func (c *Client) body(t Target, rows [][]any) ([]byte, error) {
	return json.Marshal(valueRange{
		Range:          t.A1(),
		MajorDimension: "ROWS",
		Values:         rows,
	})
}

// AppendRow appends one row after the last row of the target table and
// returns the raw response.
func (c *Client) AppendRow(ctx context.Context, t Target, row []any) ([]byte, error) {
	h, err := c.header()
	if err != nil {
		return nil, err
	}
	body, err := c.body(t, [][]any{row})
	if err != nil {
		return nil, &DeliveryError{Op: OpAppend, Target: t, Err: err}
	}

	resp, err := c.transport.Post(ctx, c.valuesURL(t)+":append?valueInputOption=USER_ENTERED", body, h)
	if err != nil {
		return nil, &DeliveryError{Op: OpAppend, Target: t, Err: err}
	}

	if len(resp) > 0 {
		var ar appendResponse
		if err := json.Unmarshal(resp, &ar); err != nil {
			return nil, &DeliveryError{Op: OpAppend, Target: t, Err: fmt.Errorf("malformed response: %w", err)}
		}
		logrus.WithFields(logrus.Fields{
			"updatedRange": ar.Updates.UpdatedRange,
			"updatedRows":  ar.Updates.UpdatedRows,
		}).Debug("row appended")
	}
	return resp, nil
}

// WriteRange overwrites the target range with rows.
func (c *Client) WriteRange(ctx context.Context, t Target, rows [][]any) ([]byte, error) {
	h, err := c.header()
	if err != nil {
		return nil, err
	}
	body, err := c.body(t, rows)
	if err != nil {
		return nil, &DeliveryError{Op: OpWrite, Target: t, Err: err}
	}

	resp, err := c.transport.Put(ctx, c.valuesURL(t)+"?valueInputOption=USER_ENTERED", body, h)
	if err != nil {
		return nil, &DeliveryError{Op: OpWrite, Target: t, Err: err}
	}
	if len(resp) > 0 && !json.Valid(resp) {
		return nil, &DeliveryError{Op: OpWrite, Target: t, Err: fmt.Errorf("malformed response")}
	}
	return resp, nil
}

// ReadRange returns the rows of the target range. A range without values
// yields an empty slice.
func (c *Client) ReadRange(ctx context.Context, t Target) ([][]any, error) {
	h, err := c.header()
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Get(ctx, c.valuesURL(t), h)
	if err != nil {
		return nil, &DeliveryError{Op: OpRead, Target: t, Err: err}
	}

	var vr valueRange
	if err := json.Unmarshal(resp, &vr); err != nil {
		return nil, &DeliveryError{Op: OpRead, Target: t, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if vr.Values == nil {
		return [][]any{}, nil
	}
	return vr.Values, nil
}
