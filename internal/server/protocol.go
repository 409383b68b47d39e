package server

import (
	"encoding/json"

	"github.com/normanking/glimpse/pkg/types"
)

// MessageType tags a WebSocket envelope.
type MessageType string

const (
	// Client to server.
	MsgCapture MessageType = "capture"
	MsgQuery   MessageType = "query"
	MsgOutcome MessageType = "outcome"

	// Server to client.
	MsgSolution MessageType = "solution"
	MsgStatus   MessageType = "status"
	MsgError    MessageType = "error"
)

// Envelope is the wire frame for every overlay message.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CapturePayload is one screen capture from the overlay, optionally with a
// user question. Screenshots travel base64-encoded by the JSON codec.
type CapturePayload struct {
	// RequestID correlates responses with this capture.
	RequestID string `json:"request_id"`

	ScreenshotRefs []string `json:"screenshot_refs,omitempty"`
	Screenshots    [][]byte `json:"screenshots,omitempty"`

	WindowTitle       string `json:"window_title,omitempty"`
	ActiveApplication string `json:"active_application,omitempty"`
	ClipboardContent  string `json:"clipboard_content,omitempty"`
	SelectedText      string `json:"selected_text,omitempty"`

	Query     string                `json:"query,omitempty"`
	Objective types.PromptObjective `json:"objective,omitempty"`
}

// QueryPayload is a follow-up question against an earlier capture's
// engineered context, referenced by its ID from the solution message.
type QueryPayload struct {
	RequestID string                `json:"request_id"`
	ContextID string                `json:"context_id"`
	Query     string                `json:"query"`
	Objective types.PromptObjective `json:"objective,omitempty"`
}

// OutcomePayload reports what the user did with an answer.
type OutcomePayload struct {
	ContextID   string   `json:"context_id"`
	UserActions []string `json:"user_actions,omitempty"`
	Outcomes    []string `json:"outcomes,omitempty"`
	DurationMs  int64    `json:"duration_ms,omitempty"`
}

// SolutionPayload carries the pipeline result back to the overlay.
type SolutionPayload struct {
	RequestID  string `json:"request_id"`
	ContextID  string `json:"context_id"`
	Summary    string `json:"summary"`
	Answer     string `json:"answer,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Confidence float64 `json:"confidence"`

	Actions []types.SuggestedAction `json:"actions,omitempty"`
}

// StatusPayload reports request lifecycle transitions
// ("processing", "superseded").
type StatusPayload struct {
	RequestID string `json:"request_id"`
	State     string `json:"state"`
}

// ErrorPayload reports a failed request.
type ErrorPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message"`
}

func envelope(t MessageType, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: t, Payload: raw}, nil
}
