package sheets

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResponse is returned by a Transport when the request produced no
	// response at all. An empty 2xx body is not an error.
	ErrNoResponse = errors.New("no response")
)

// StatusError is a non-2xx reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("got %d: %s", e.Code, e.Body)
}

// DeliveryError reports a single failed request against the spreadsheet.
// The client never retries; callers decide.
type DeliveryError struct {
	Op     string
	Target Target
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
