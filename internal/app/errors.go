package app

import "errors"

// ErrInvalidRequest indicates missing or malformed client input. It is the
// only error the gateway operations return; backend faults become envelopes.
var ErrInvalidRequest = errors.New("invalid request")

// FieldError names the request field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

// Is lets callers match any FieldError with errors.Is(err, ErrInvalidRequest).
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func required(field string) error {
	return &FieldError{Field: field, Reason: "is required"}
}
