package ledger

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the ledger service. Message holds the
// backend's "error" or "message" field verbatim and is empty when the body
// carried neither.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("ledger: %d: %s", e.StatusCode, e.Message)
}

// BackendMessage implements utils.Messenger.
func (e *APIError) BackendMessage() string { return e.Message }

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}
