package catalog

import (
	"fmt"

	ierr "github.com/reinvoice/reinvoice/internal/errors"
)

// RetryableError is raised by a plugin that wants the triggering event to be
// rescheduled on its own terms. The embedded policy lists the exact delays.
type RetryableError struct {
	Policy RetryPolicy
	Err    error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable catalog error (%d delays): %v", len(e.Policy.Delays), e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps an upstream failure with an explicit retry schedule
func NewRetryableError(err error, policy RetryPolicy) error {
	return &RetryableError{Policy: policy, Err: err}
}

// AsRetryable extracts the explicit retry policy from an error chain, if any
func AsRetryable(err error) (*RetryableError, bool) {
	var re *RetryableError
	if ierr.As(err, &re) {
		return re, true
	}
	return nil, false
}
