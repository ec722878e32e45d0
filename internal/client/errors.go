package client

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that no response arrived within the configured
// request timeout. Local to the client; the processor never sees it.
type TimeoutError struct {
	RequestID string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %s", e.RequestID, e.Timeout)
}

// RemoteError carries the error message from a Response whose result
// status was ERROR.
type RemoteError struct {
	RequestID string
	Message   string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// RetryError is the final error after all attempts of a call failed.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error {
	return e.Last
}

// IsTimeout reports whether err is (or wraps) a timeout error.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
