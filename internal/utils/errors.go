package utils

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or mismatched input caught before any
// network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthError reports a rejected login, a role mismatch, or a registration
// refused by policy or by the backend.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError wraps connection failures, timeouts and malformed responses.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// HardwareSignalError wraps a failed indicator write. It never aborts the
// workflow that produced the verdict.
type HardwareSignalError struct {
	Err error
}

func (e *HardwareSignalError) Error() string { return "hardware signal: " + e.Err.Error() }

func (e *HardwareSignalError) Unwrap() error { return e.Err }

// NetworkMessage is shown for every NetworkError.
const NetworkMessage = "Could not reach the ledger service. Please try again."

// Messenger is implemented by errors that carry a message supplied by the
// backend.
type Messenger interface {
	error
	BackendMessage() string
}

// UserMessage picks the text surfaced to the user for err: the backend's
// own message when there is one, a generic text for network failures, the
// local message for validation and auth errors, fallback otherwise.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var m Messenger
	if errors.As(err, &m) {
		if msg := m.BackendMessage(); msg != "" {
			return msg
		}
		return fallback
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return NetworkMessage
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return fallback
}
