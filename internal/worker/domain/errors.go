package domain

import "errors"

var (
	// ErrJobGone is returned when a queued message refers to a job that no
	// longer exists, typically because it was deleted or swept by retention.
	ErrJobGone = errors.New("job no longer exists")

	// ErrInvalidMessage is returned when a queue message cannot be parsed
	ErrInvalidMessage = errors.New("invalid job message")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
