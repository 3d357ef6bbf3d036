package ai

import (
	"context"
	"errors"
	"strings"
)

const redactedMarker = "[redacted]"

// GenerationError is the single failure kind returned by every TextGenerator.
// Its message never contains the provider credential.
type GenerationError struct {
	Provider string
	Message  string
	Err      error
}

func (e *GenerationError) Error() string {
	return e.Provider + " generate: " + e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the backend call ran out of time.
func (e *GenerationError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

func newGenerationError(provider string, err error, secrets ...string) *GenerationError {
	msg := "unknown error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	case err != nil:
		msg = Redact(err.Error(), secrets...)
	}
	return &GenerationError{Provider: provider, Message: msg, Err: err}
}

// Redact replaces every occurrence of the given secrets in s.
func Redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, redactedMarker)
	}
	return s
}
