package sheets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport performs raw HTTP exchanges. Implementations return
// ErrNoResponse (wrapped) when nothing came back, and *StatusError for
// non-2xx replies.
type Transport interface {
	Get(ctx context.Context, url string, header http.Header) ([]byte, error)
	Post(ctx context.Context, url string, body []byte, header http.Header) ([]byte, error)
	Put(ctx context.Context, url string, body []byte, header http.Header) ([]byte, error)
}

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// HTTPTransport is a Transport over net/http.
type HTTPTransport struct {
	client  *http.Client
	timeout time.Duration
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a transport with the given per-request timeout.
// A nil client uses a fresh http.Client.
func NewHTTPTransport(client *http.Client, timeout time.Duration) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{client: client, timeout: timeout}
}

func (t *HTTPTransport) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return t.do(ctx, http.MethodGet, url, nil, header)
}

func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte, header http.Header) ([]byte, error) {
	return t.do(ctx, http.MethodPost, url, body, header)
}

func (t *HTTPTransport) Put(ctx context.Context, url string, body []byte, header http.Header) ([]byte, error) {
	return t.do(ctx, http.MethodPut, url, body, header)
}

func (t *HTTPTransport) do(ctx context.Context, method, url string, body []byte, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrNoResponse, err)
	}

	logrus.WithFields(logrus.Fields{
		"method":     method,
		"statusCode": resp.StatusCode,
		"latency":    time.Since(start),
		"dataLength": len(b),
	}).Debug("sheets request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	return b, nil
}
