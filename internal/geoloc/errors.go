package geoloc

import (
	"context"
	"errors"
)

// Error kinds crossing the provider boundary. RequestLocation returns the
// last one of these classified after retries are exhausted.
var (
	ErrPermissionDenied    = errors.New("geoloc: permission denied")
	ErrPositionUnavailable = errors.New("geoloc: position unavailable")
	ErrTimeout             = errors.New("geoloc: timeout")
	ErrInvalidCoordinates  = errors.New("geoloc: invalid coordinates")
	ErrServiceUnavailable  = errors.New("geoloc: location service unavailable")
)

// Classify folds an arbitrary source error into one of the typed kinds.
// Already-typed errors pass through untouched.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrPositionUnavailable),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrInvalidCoordinates),
		errors.Is(err, ErrServiceUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return ErrTimeout
	default:
		return ErrPositionUnavailable
	}
}
