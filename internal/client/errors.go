package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/me/logshack/pkg/model"
)

var (
	// ErrSessionExpired is returned after the server rejected the session
	// token; the session has already been cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotAuthenticated is returned by authenticated calls made without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Error wraps a failed call with the operation that issued it.
type Error struct {
	// Op is the operation that failed, e.g. "list logs".
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsSessionExpired reports whether err ends the session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsTransport reports whether err is a network failure rather than a
// response from the server.
func IsTransport(err error) bool {
	if err == nil || IsSessionExpired(err) || errors.Is(err, ErrNotAuthenticated) {
		return false
	}
	var apiErr *model.APIError
	return !errors.As(err, &apiErr)
}

// IsUnauthorized reports whether the server answered 401, e.g. for bad
// credentials on an anonymous call.
func IsUnauthorized(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsForbidden reports whether the server refused the call for insufficient role.
func IsForbidden(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.IsForbidden()
}

// ServerMessage returns the server-provided error text, or "" when err did
// not come from the server.
func ServerMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
