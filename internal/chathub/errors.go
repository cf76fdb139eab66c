package chathub

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError via errors.Is.
	ErrValidation = errors.New("invalid message")
	// ErrTransport is reported when a connection could not take an event.
	ErrTransport = errors.New("connection unavailable")
	// ErrHubStopped is returned by request methods once Run has returned.
	ErrHubStopped = errors.New("relay stopped")
)

// ValidationError is a rejected inbound event. It is reported to the sender only.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
