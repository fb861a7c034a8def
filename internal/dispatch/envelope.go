// Package dispatch exposes the tool registry to the agent protocol: it
// gates each call on declared readiness needs, validates input, runs the
// handler on a bounded worker pool with panic recovery, and wraps every
// outcome in the uniform response envelope.
package dispatch

import (
	"encoding/json"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// Result is what a tool handler returns on success: a human summary plus
// an optional structured payload.
type Result struct {
	Message string
	Data    any
}

// envelope is the uniform JSON shape handed back to the agent for both
// success and error outcomes.
type envelope struct {
	Status  string         `json:"status"`
	Kind    string         `json:"kind,omitempty"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// SuccessEnvelope renders a success result as the envelope JSON string.
func SuccessEnvelope(res *Result) string {
	return marshalEnvelope(envelope{
		Status:  "ok",
		Message: res.Message,
		Data:    res.Data,
	})
}

// ErrorEnvelope renders err as the envelope JSON string, prefixing the
// message with the tool's registered error label. Internal errors keep a
// generic message; the detail belongs in the log.
func ErrorEnvelope(prefix string, err error) string {
	kind := dawerr.KindOf(err)
	message := err.Error()
	if kind == dawerr.KindInternal {
		message = "internal error"
	}
	if prefix != "" {
		message = prefix + ": " + message
	}
	return marshalEnvelope(envelope{
		Status:  "error",
		Kind:    string(kind),
		Message: message,
		Details: dawerr.DetailsOf(err),
	})
}

func marshalEnvelope(e envelope) string {
	data, err := json.Marshal(e)
	if err != nil {
		// Data payloads come from our own handlers; an unmarshalable one
		// is a programming error worth surfacing loudly but safely.
		fallback, _ := json.Marshal(envelope{
			Status:  "error",
			Kind:    string(dawerr.KindInternal),
			Message: "internal error",
		})
		return string(fallback)
	}
	return string(data)
}
