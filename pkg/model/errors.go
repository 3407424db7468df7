package model

import (
	"fmt"
	"net/http"
)

// APIError is an error reported by the LogShackBaby API as {"error": "..."}.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// IsForbidden reports whether the server refused the call for insufficient role.
func (e *APIError) IsForbidden() bool {
	return e.Status == http.StatusForbidden
}

// IsNotFound reports whether the addressed resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}
