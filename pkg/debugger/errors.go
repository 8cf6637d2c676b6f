package debugger

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is wrapped by every validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// UpstreamError reports a failed call to an external collaborator.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamError reports whether err wraps an *UpstreamError.
func IsUpstreamError(err error) bool {
	var target *UpstreamError

	return errors.As(err, &target)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
