// Package engine orchestrates the capture pipeline: analyze the screen,
// record it to memory, synthesize an engineered context, build a prompt,
// and dispatch it to the generation backend.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/glimpse/internal/analyzer"
	"github.com/normanking/glimpse/internal/llm"
	"github.com/normanking/glimpse/internal/logging"
	"github.com/normanking/glimpse/internal/memory"
	"github.com/normanking/glimpse/internal/prompts"
	"github.com/normanking/glimpse/internal/synthesizer"
	"github.com/normanking/glimpse/pkg/types"
)

// ErrPipeline wraps any stage failure inside HandleCapture.
var ErrPipeline = errors.New("capture pipeline failed")

// systemPrompt frames every backend request.
const systemPrompt = "You are Glimpse, a desktop assistant that sees the " +
	"user's screen. Answer using the screen context provided. Be direct " +
	"and concrete; when code is visible, reference it specifically."

// Config holds engine tuning knobs.
type Config struct {
	// ContextTTL bounds how long a synthesized context stays cached.
	ContextTTL time.Duration
	// AttachCaptures forwards raw screenshot bytes to the backend.
	AttachCaptures bool
}

// DefaultConfig returns sensible engine defaults.
func DefaultConfig() Config {
	return Config{
		ContextTTL:     5 * time.Minute,
		AttachCaptures: true,
	}
}

// CaptureRequest is one screen capture plus the signals sampled with it.
type CaptureRequest struct {
	// ScreenshotRefs are opaque references to screenshot artifacts.
	ScreenshotRefs []string
	// ScreenshotData holds raw capture bytes for vision-capable backends.
	ScreenshotData [][]byte
	// Signals are the auxiliary context signals sampled at capture time.
	Signals analyzer.Signals
	// Query is the user's question; empty runs analysis and synthesis only.
	Query string
	// Objective overrides the configured default when non-empty.
	Objective types.PromptObjective
}

// CaptureResult carries every pipeline artifact for one capture.
type CaptureResult struct {
	Context    *types.ScreenContext     `json:"context"`
	Engineered *types.EngineeredContext `json:"engineered"`
	Prompt     *types.EngineeredPrompt  `json:"prompt,omitempty"`
	Answer     *llm.GenerateResponse    `json:"answer,omitempty"`
}

type cachedContext struct {
	ec      *types.EngineeredContext
	expires time.Time
}

// Engine wires the pipeline stages together and owns their lifecycle.
type Engine struct {
	cfg      Config
	analyzer *analyzer.Analyzer
	memory   *memory.Memory
	synth    *synthesizer.Synthesizer
	prompts  *prompts.Engineer
	backend  llm.Provider
	log      zerolog.Logger

	mu       sync.Mutex
	contexts map[string]cachedContext
}

// New assembles an engine from its stages. The backend may be nil; the
// pipeline then stops after prompt engineering.
func New(cfg Config, a *analyzer.Analyzer, m *memory.Memory, s *synthesizer.Synthesizer, p *prompts.Engineer, backend llm.Provider) *Engine {
	if cfg.ContextTTL <= 0 {
		cfg.ContextTTL = 5 * time.Minute
	}
	return &Engine{
		cfg:      cfg,
		analyzer: a,
		memory:   m,
		synth:    s,
		prompts:  p,
		backend:  backend,
		log:      logging.For("engine"),
		contexts: make(map[string]cachedContext),
	}
}

// Close releases the engine's owned resources.
func (e *Engine) Close() error {
	return e.memory.Close()
}

// HandleCapture runs the full pipeline for one capture. The snapshot is
// recorded to memory before synthesis so patterns accrue even for captures
// that never become questions.
func (e *Engine) HandleCapture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error) {
	start := time.Now()

	sc, err := e.analyzer.Analyze(ctx, req.ScreenshotRefs, req.Signals)
	if err != nil {
		return nil, fmt.Errorf("%w: analyze: %v", ErrPipeline, err)
	}

	e.memory.Record(*sc, nil, nil, 0)

	ec, err := e.synth.Synthesize(*sc, e.memory.History(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: synthesize: %v", ErrPipeline, err)
	}
	// Cached under both IDs: follow-up queries reference the context by the
	// capture's context_id, outcome reports annotate the same snapshot.
	e.cacheContext(ec, ec.ID, sc.ID)

	result := &CaptureResult{Context: sc, Engineered: ec}
	if req.Query == "" {
		return result, nil
	}

	prompt, err := e.prompts.Engineer(ec, req.Query, req.Objective)
	if err != nil {
		return nil, fmt.Errorf("%w: engineer prompt: %v", ErrPipeline, err)
	}
	result.Prompt = prompt

	if e.backend == nil || !e.backend.Available() {
		e.log.Debug().Msg("no backend configured, returning prompt only")
		return result, nil
	}

	answer, err := e.generate(ctx, prompt, req)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", ErrPipeline, err)
	}
	result.Answer = answer

	e.log.Info().
		Str("context_id", sc.ID).
		Dur("elapsed", time.Since(start)).
		Msg("capture handled")

	return result, nil
}

// generate dispatches the prompt, walking the fallback chain when the
// backend rejects the engineered text. Context cancellation aborts the
// chain instead of trying the next fallback.
func (e *Engine) generate(ctx context.Context, prompt *types.EngineeredPrompt, req *CaptureRequest) (*llm.GenerateResponse, error) {
	var images [][]byte
	if e.cfg.AttachCaptures {
		images = req.ScreenshotData
	}

	texts := append([]string{prompt.Text}, prompt.Fallbacks...)

	var lastErr error
	for i, text := range texts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := e.backend.Generate(ctx, &llm.GenerateRequest{
			SystemPrompt: systemPrompt,
			Prompt:       text,
			Images:       images,
		})
		if err == nil {
			if i > 0 {
				e.log.Warn().Int("fallback", i).Msg("answered via fallback prompt")
			}
			return resp, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// HandleQuery answers a follow-up question against a previously synthesized
// context, skipping analysis and synthesis. The context must still be cached.
func (e *Engine) HandleQuery(ctx context.Context, contextID, query string, objective types.PromptObjective) (*CaptureResult, error) {
	ec := e.ContextByID(contextID)
	if ec == nil {
		return nil, fmt.Errorf("%w: no cached context %q", ErrPipeline, contextID)
	}

	prompt, err := e.prompts.Engineer(ec, query, objective)
	if err != nil {
		return nil, fmt.Errorf("%w: engineer prompt: %v", ErrPipeline, err)
	}

	result := &CaptureResult{Engineered: ec, Prompt: prompt}
	if e.backend == nil || !e.backend.Available() {
		return result, nil
	}

	answer, err := e.generate(ctx, prompt, &CaptureRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", ErrPipeline, err)
	}
	result.Answer = answer
	return result, nil
}

// ReportOutcome records what the user did with an answer, enriching the
// snapshot memory keeps for that capture.
func (e *Engine) ReportOutcome(contextID string, userActions, outcomes []string, duration time.Duration) bool {
	return e.memory.Annotate(contextID, userActions, outcomes, duration)
}

// Patterns re-mines behavioral patterns from retained history.
func (e *Engine) Patterns() []types.ContextPattern {
	return e.memory.MinePatterns()
}

// ContextByID returns a cached engineered context, or nil after expiry.
func (e *Engine) ContextByID(id string) *types.EngineeredContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.contexts[id]
	if !ok || time.Now().After(entry.expires) {
		delete(e.contexts, id)
		return nil
	}
	return entry.ec
}

func (e *Engine) cacheContext(ec *types.EngineeredContext, keys ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	for id, entry := range e.contexts {
		if now.After(entry.expires) {
			delete(e.contexts, id)
		}
	}
	entry := cachedContext{ec: ec, expires: now.Add(e.cfg.ContextTTL)}
	for _, key := range keys {
		e.contexts[key] = entry
	}
}
