package app

import "encoding/json"

// Envelope is the normalized result of a gateway operation. Exactly one of
// payload and error message is set; the constructors are the only way to
// build a non-zero Envelope.
type Envelope struct {
	success  bool
	field    string
	payload  string
	errorMsg string
}

// Succeeded wraps generated text under the given response field. An empty
// payload yields a failed Envelope.
func Succeeded(field, payload string) Envelope {
	if payload == "" {
		return Failed("")
	}
	return Envelope{success: true, field: field, payload: payload}
}

// Failed wraps a human-readable failure message.
func Failed(msg string) Envelope {
	if msg == "" {
		msg = unavailablePrefix
	}
	return Envelope{errorMsg: msg}
}

// Success reports whether the Envelope carries generated text.
func (e Envelope) Success() bool { return e.success }

// Field is the response field name of a successful Envelope.
func (e Envelope) Field() string { return e.field }

// Payload is the generated text; empty on failure.
func (e Envelope) Payload() string { return e.payload }

// ErrorMessage is the failure message; empty on success.
func (e Envelope) ErrorMessage() string { return e.errorMsg }

// MarshalJSON renders {"success":true,"<field>":payload} or
// {"success":false,"error":message}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.success {
		return json.Marshal(map[string]any{"success": true, e.field: e.payload})
	}
	return json.Marshal(map[string]any{"success": false, "error": e.errorMsg})
}
