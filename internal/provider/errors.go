package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCredentialsUnavailable means there is no usable access token and a
// refresh is not possible (missing client credentials, missing or rejected
// refresh token). Callers must not retry; the degraded paths defined by the
// synchronizer apply where they exist.
var ErrCredentialsUnavailable = errors.New("credentials unavailable")

// Error is returned when the provider rejects a call for any reason other
// than expired auth. It is never retried automatically.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a provider rejection for a resource
// that does not exist remotely.
func IsNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Status == http.StatusNotFound
}
