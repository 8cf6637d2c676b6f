package explorer

import "errors"

// ErrAPIKeyMissing is returned by every lookup when no API key is configured.
var ErrAPIKeyMissing = errors.New("explorer API key not configured")

// UnavailableError reports that the explorer answered but has nothing usable
// for the requested contract. The message is meant for display.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string {
	return e.Message
}

// IsUnavailable reports whether err is an *UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError

	return errors.As(err, &target)
}
