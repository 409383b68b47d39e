package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/glimpse/pkg/types"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := envelope(MsgStatus, StatusPayload{RequestID: "r1", State: "processing"})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, MsgStatus, decoded.Type)

	var status StatusPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &status))
	assert.Equal(t, "r1", status.RequestID)
	assert.Equal(t, "processing", status.State)
}

func TestCapturePayloadDecode(t *testing.T) {
	raw := []byte(`{
		"type": "capture",
		"payload": {
			"request_id": "req-7",
			"window_title": "main.go - VSCode",
			"active_application": "VSCode",
			"selected_text": "func main() {}",
			"query": "what does this do?",
			"objective": "explain"
		}
	}`)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, MsgCapture, env.Type)

	var capture CapturePayload
	require.NoError(t, json.Unmarshal(env.Payload, &capture))
	assert.Equal(t, "req-7", capture.RequestID)
	assert.Equal(t, "VSCode", capture.ActiveApplication)
	assert.Equal(t, types.ObjectiveExplain, capture.Objective)
	assert.Empty(t, capture.Screenshots)
}

func TestCapturePayloadScreenshotsBase64(t *testing.T) {
	payload := CapturePayload{
		RequestID:   "req-1",
		Screenshots: [][]byte{{0x89, 0x50, 0x4e, 0x47}},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	// []byte fields travel base64-encoded, not as JSON arrays.
	assert.Contains(t, string(raw), `"iVBORw=="`)

	var decoded CapturePayload
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, payload.Screenshots, decoded.Screenshots)
}

func TestQueryPayloadDecode(t *testing.T) {
	raw := []byte(`{"type":"query","payload":{"request_id":"req-9","context_id":"ctx-1","query":"and then?"}}`)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, MsgQuery, env.Type)

	var query QueryPayload
	require.NoError(t, json.Unmarshal(env.Payload, &query))
	assert.Equal(t, "ctx-1", query.ContextID)
	assert.Equal(t, "and then?", query.Query)
	assert.Empty(t, query.Objective)
}

func TestSolutionPayloadOmitsEmptyFields(t *testing.T) {
	env, err := envelope(MsgSolution, SolutionPayload{
		RequestID:  "req-2",
		ContextID:  "ctx-2",
		Summary:    "Development work in VSCode",
		Confidence: 0.8,
	})
	require.NoError(t, err)

	text := string(env.Payload)
	assert.NotContains(t, text, "answer")
	assert.NotContains(t, text, "prompt")
	assert.NotContains(t, text, "actions")
	assert.Contains(t, text, `"confidence":0.8`)
}

func TestErrorEnvelope(t *testing.T) {
	env, err := envelope(MsgError, ErrorPayload{RequestID: "req-3", Message: "capture failed"})
	require.NoError(t, err)

	var decoded ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &decoded))
	assert.Equal(t, "capture failed", decoded.Message)
}
