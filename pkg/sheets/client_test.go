package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wqlog/wqlog/pkg/credentials"
)

type staticTokens struct {
	value string
	err   error
	calls int
}

func (s *staticTokens) Token() (credentials.BearerToken, error) {
	s.calls++
	if s.err != nil {
		return credentials.BearerToken{}, s.err
	}
	return credentials.BearerToken{Value: s.value, Expiry: time.Now().Add(time.Hour)}, nil
}

type recordingTransport struct {
	resp  []byte
	err   error
	calls int
}

func (r *recordingTransport) Get(context.Context, string, http.Header) ([]byte, error) {
	r.calls++
	return r.resp, r.err
}

func (r *recordingTransport) Post(context.Context, string, []byte, http.Header) ([]byte, error) {
	r.calls++
	return r.resp, r.err
}

func (r *recordingTransport) Put(context.Context, string, []byte, http.Header) ([]byte, error) {
	r.calls++
	return r.resp, r.err
}

var target = Target{SpreadsheetID: "sheet-id", Tab: "Sheet1", Range: "A1:D1"}

func TestClient_AppendRow(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v4/spreadsheets/sheet-id/values/Sheet1!A1:D1:append", r.URL.Path)
		assert.Equal(t, "valueInputOption=USER_ENTERED", r.URL.RawQuery)
		assert.Equal(t, "Bearer signed-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-id","updates":{"updatedRange":"Sheet1!A7:E7","updatedRows":1}}`))
	}))
	defer srv.Close()

	c := NewClient(&staticTokens{value: "signed-token"}, NewHTTPTransport(srv.Client(), time.Second),
		WithBaseURL(srv.URL+"/v4/spreadsheets"))

	row := MeasurementRow{
		Timestamp:   time.Unix(1714564800, 0),
		Temperature: 21.456,
		Depth:       6.5,
		PH:          7.012,
	}
	resp, err := c.AppendRow(context.Background(), target, row.Values(DefaultDateOffset))
	require.NoError(t, err)
	assert.Contains(t, string(resp), "Sheet1!A7:E7")

	assert.Equal(t, "Sheet1!A1:D1", gotBody["range"])
	assert.Equal(t, "ROWS", gotBody["majorDimension"])
	assert.Equal(t, []any{[]any{
		float64(1714564800),
		"=EPOCHTODATE(1714564800 - 28800)",
		"21.46",
		"6.50",
		"7.01",
	}}, gotBody["values"])
}

func TestClient_AppendRowNoResponse(t *testing.T) {
	tr := &recordingTransport{err: ErrNoResponse}
	c := NewClient(&staticTokens{value: "t"}, tr)

	resp, err := c.AppendRow(context.Background(), target, []any{1})
	assert.Nil(t, resp)

	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, OpAppend, derr.Op)
	assert.Equal(t, target, derr.Target)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, 1, tr.calls)
}

func TestClient_EmptyBodyIsSuccess(t *testing.T) {
	tr := &recordingTransport{resp: []byte{}}
	c := NewClient(&staticTokens{value: "t"}, tr)

	_, err := c.AppendRow(context.Background(), target, []any{1})
	assert.NoError(t, err)
}

func TestClient_StatusAndMalformed(t *testing.T) {
	tests := []struct {
		description string
		status      int
		body        string
	}{
		{description: "forbidden", status: http.StatusForbidden, body: `{"error":{"code":403}}`},
		{description: "server error", status: http.StatusInternalServerError, body: ""},
		{description: "malformed json", status: http.StatusOK, body: `{"updates":`},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(&staticTokens{value: "t"}, NewHTTPTransport(nil, time.Second), WithBaseURL(srv.URL))

			_, err := c.AppendRow(context.Background(), target, []any{1})
			var derr *DeliveryError
			assert.True(t, errors.As(err, &derr))

			_, err = c.ReadRange(context.Background(), target)
			assert.True(t, errors.As(err, &derr))
			assert.Equal(t, OpRead, derr.Op)

			if tc.status != http.StatusOK {
				var serr *StatusError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, tc.status, serr.Code)
			}
		})
	}
}

func TestClient_ReadRange(t *testing.T) {
	tests := []struct {
		description string
		body        string
		expect      [][]any
	}{
		{
			description: "values present",
			body:        `{"range":"Sheet1!A1:B2","majorDimension":"ROWS","values":[["a","b"],["1","2"]]}`,
			expect:      [][]any{{"a", "b"}, {"1", "2"}},
		},
		{
			description: "values absent",
			body:        `{"range":"Sheet1!A1:B2","majorDimension":"ROWS"}`,
			expect:      [][]any{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/sheet-id/values/Sheet1!A1:D1", r.URL.Path)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(&staticTokens{value: "t"}, NewHTTPTransport(nil, time.Second), WithBaseURL(srv.URL))
			rows, err := c.ReadRange(context.Background(), target)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, rows)
		})
	}
}

func TestClient_WriteRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/sheet-id/values/Sheet1!A1:D1", r.URL.Path)
		assert.Equal(t, "valueInputOption=USER_ENTERED", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"updatedRows":2}`))
	}))
	defer srv.Close()

	c := NewClient(&staticTokens{value: "t"}, NewHTTPTransport(nil, time.Second), WithBaseURL(srv.URL))
	_, err := c.WriteRange(context.Background(), target, [][]any{{"a"}, {"b"}})
	assert.NoError(t, err)
}

func TestClient_TokenFailureIsNotDelivery(t *testing.T) {
	tr := &recordingTransport{}
	signErr := &credentials.SigningError{Err: errors.New("bad key")}
	c := NewClient(&staticTokens{err: signErr}, tr)

	_, err := c.AppendRow(context.Background(), target, []any{1})
	var derr *DeliveryError
	assert.False(t, errors.As(err, &derr))
	var serr *credentials.SigningError
	assert.True(t, errors.As(err, &serr))
	assert.Equal(t, 0, tr.calls)
}
