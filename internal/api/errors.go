package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ServerError is a non-2xx response. Message holds the body's "error" field
// when the server sent one.
type ServerError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

func (e *ServerError) HTTPStatusCode() int {
	return e.StatusCode
}

// TransportError is a failure to reach the server or to read its reply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage returns the server's error message for err, or fallback when
// there is none.
func UserMessage(err error, fallback string) string {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

// IsRetryableStatus reports whether a status code is worth retrying.
func IsRetryableStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryable reports whether a read request that failed with err may be
// repeated.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *ServerError
	if errors.As(err, &se) {
		return IsRetryableStatus(se.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var te *TransportError
	return errors.As(err, &te)
}
