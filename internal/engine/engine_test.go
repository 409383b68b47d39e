package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/glimpse/internal/analyzer"
	"github.com/normanking/glimpse/internal/llm"
	"github.com/normanking/glimpse/internal/memory"
	"github.com/normanking/glimpse/internal/prompts"
	"github.com/normanking/glimpse/internal/synthesizer"
	"github.com/normanking/glimpse/pkg/types"
)

// fakebackend answers after failing a configurable number of times.
type fakebackend struct {
	failures int
	calls    int
	prompts  []string
}

func (f *fakebackend) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if f.calls <= f.failures {
		return nil, errors.New("backend unavailable")
	}
	return &llm.GenerateResponse{Content: "answer", Model: "fake"}, nil
}

func (f *fakebackend) Name() string    { return "fake" }
func (f *fakebackend) Available() bool { return true }

func newTestEngine(t *testing.T, backend llm.Provider) *Engine {
	t.Helper()

	memCfg := memory.DefaultConfig()
	memCfg.PersistPath = ""
	mem, err := memory.New(memCfg)
	require.NoError(t, err)

	eng := New(
		DefaultConfig(),
		analyzer.New(analyzer.DefaultConfig()),
		mem,
		synthesizer.New(synthesizer.DefaultConfig()),
		prompts.New(prompts.DefaultConfig()),
		backend,
	)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func captureRequest(query string) *CaptureRequest {
	return &CaptureRequest{
		ScreenshotRefs: []string{"shot-1"},
		Signals: analyzer.Signals{
			WindowTitle:       "main.go - VSCode",
			ActiveApplication: "VSCode",
			SelectedText:      "func main() { fmt.Println() }",
		},
		Query: query,
	}
}

func TestHandleCaptureWithoutQuery(t *testing.T) {
	eng := newTestEngine(t, nil)

	result, err := eng.HandleCapture(context.Background(), captureRequest(""))
	require.NoError(t, err)

	assert.Equal(t, types.EnvIDE, result.Context.Environment)
	assert.NotNil(t, result.Engineered)
	assert.Nil(t, result.Prompt)
	assert.Nil(t, result.Answer)
}

func TestHandleCaptureWithQueryNoBackend(t *testing.T) {
	eng := newTestEngine(t, nil)

	result, err := eng.HandleCapture(context.Background(), captureRequest("what does this do?"))
	require.NoError(t, err)

	require.NotNil(t, result.Prompt)
	assert.Contains(t, result.Prompt.Text, "what does this do?")
	assert.Nil(t, result.Answer)
}

func TestHandleCaptureFullPipeline(t *testing.T) {
	backend := &fakebackend{}
	eng := newTestEngine(t, backend)

	result, err := eng.HandleCapture(context.Background(), captureRequest("explain this"))
	require.NoError(t, err)

	require.NotNil(t, result.Answer)
	assert.Equal(t, "answer", result.Answer.Content)
	assert.Equal(t, 1, backend.calls)
}

func TestGenerateWalksFallbackChain(t *testing.T) {
	backend := &fakebackend{failures: 2}
	eng := newTestEngine(t, backend)

	result, err := eng.HandleCapture(context.Background(), captureRequest("explain this"))
	require.NoError(t, err)

	require.NotNil(t, result.Answer)
	// Two failures consumed the engineered prompt and the first fallback.
	assert.Equal(t, 3, backend.calls)
	assert.Equal(t, result.Prompt.Fallbacks[1], backend.prompts[2])
}

func TestGenerateExhaustsFallbacks(t *testing.T) {
	backend := &fakebackend{failures: 10}
	eng := newTestEngine(t, backend)

	_, err := eng.HandleCapture(context.Background(), captureRequest("explain this"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPipeline)
	// Engineered prompt plus exactly three fallbacks.
	assert.Equal(t, 4, backend.calls)
}

func TestHandleCaptureCancelledContext(t *testing.T) {
	backend := &fakebackend{failures: 10}
	eng := newTestEngine(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.HandleCapture(ctx, captureRequest("explain this"))
	require.Error(t, err)
}

func TestHandleCaptureRecordsSnapshots(t *testing.T) {
	eng := newTestEngine(t, nil)

	for i := 0; i < 3; i++ {
		_, err := eng.HandleCapture(context.Background(), captureRequest(""))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, eng.memory.Size())
}

func TestReportOutcome(t *testing.T) {
	eng := newTestEngine(t, nil)

	result, err := eng.HandleCapture(context.Background(), captureRequest(""))
	require.NoError(t, err)

	ok := eng.ReportOutcome(result.Context.ID, []string{"accepted"}, []string{"solved"}, time.Minute)
	assert.True(t, ok)
	assert.False(t, eng.ReportOutcome("missing", nil, nil, 0))
}

func TestHandleQueryAgainstCachedContext(t *testing.T) {
	backend := &fakebackend{}
	eng := newTestEngine(t, backend)

	captured, err := eng.HandleCapture(context.Background(), captureRequest(""))
	require.NoError(t, err)

	// Both the screen context ID and the engineered context ID resolve.
	for _, id := range []string{captured.Context.ID, captured.Engineered.ID} {
		result, err := eng.HandleQuery(context.Background(), id, "what next?", "")
		require.NoError(t, err)
		require.NotNil(t, result.Prompt)
		require.NotNil(t, result.Answer)
		assert.Equal(t, captured.Engineered.ID, result.Engineered.ID)
	}
}

func TestHandleQueryUnknownContext(t *testing.T) {
	eng := newTestEngine(t, nil)

	_, err := eng.HandleQuery(context.Background(), "missing", "what next?", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPipeline)
}

func TestContextCache(t *testing.T) {
	eng := newTestEngine(t, nil)

	result, err := eng.HandleCapture(context.Background(), captureRequest(""))
	require.NoError(t, err)

	cached := eng.ContextByID(result.Engineered.ID)
	require.NotNil(t, cached)
	assert.Equal(t, result.Engineered.ID, cached.ID)

	assert.Nil(t, eng.ContextByID("missing"))
}

func TestContextCacheExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextTTL = time.Millisecond

	memCfg := memory.DefaultConfig()
	memCfg.PersistPath = ""
	mem, err := memory.New(memCfg)
	require.NoError(t, err)

	eng := New(cfg, analyzer.New(analyzer.DefaultConfig()), mem,
		synthesizer.New(synthesizer.DefaultConfig()), prompts.New(prompts.DefaultConfig()), nil)
	t.Cleanup(func() { eng.Close() })

	result, err := eng.HandleCapture(context.Background(), captureRequest(""))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	assert.Nil(t, eng.ContextByID(result.Engineered.ID))
}

func TestPatternsAfterCaptures(t *testing.T) {
	eng := newTestEngine(t, nil)

	for i := 0; i < 3; i++ {
		_, err := eng.HandleCapture(context.Background(), captureRequest(""))
		require.NoError(t, err)
	}

	patterns := eng.Patterns()
	keys := make([]string, 0, len(patterns))
	for _, p := range patterns {
		keys = append(keys, p.Key)
	}
	assert.Contains(t, keys, "env-ide")
	assert.Contains(t, keys, "activity-coding")
}
