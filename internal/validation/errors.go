package validation

import "github.com/cockroachdb/errors"

// ErrCancelled is returned when the context is cancelled before all validators ran.
var ErrCancelled = errors.New("validation cancelled")

func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return errors.WithSecondaryError(ErrCancelled, cause)
}
