// Package prompts selects, adapts, and optimizes prompt templates against
// an engineered context, producing the final prompt plus fallbacks.
package prompts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/glimpse/internal/logging"
	"github.com/normanking/glimpse/pkg/types"
)

// ErrPromptGeneration wraps any failure while producing a prompt.
var ErrPromptGeneration = errors.New("prompt generation failed")

// ErrTemplateVariable marks a required template variable that could not
// be resolved or failed validation.
var ErrTemplateVariable = errors.New("template variable unresolved")

// Confidence weighting.
const (
	confidenceQualityWeight      = 0.4
	confidenceTemplateWeight     = 0.3
	confidenceOptimizationWeight = 0.3

	// defaultSuccessRate substitutes for templates with no history.
	defaultSuccessRate = 0.7
)

var placeholderRe = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// Config holds prompt-engineer tuning knobs.
type Config struct {
	// DefaultObjective applies when the caller passes none.
	DefaultObjective types.PromptObjective
	// DefaultStyle and DefaultLength feed the prompt metadata.
	DefaultStyle  types.PromptStyle
	DefaultLength types.PromptLength
	// MaxTokens and ContextWindow describe the target model's budget.
	MaxTokens     int
	ContextWindow int
	// TargetModel names the backend model for the metadata record.
	TargetModel string
	// OptimizationEnabled toggles the optimization pipeline.
	OptimizationEnabled bool
	// ChainExecution reserves multi-step template chains; not yet wired.
	ChainExecution bool
	// Analytics toggles usage-count tracking on templates.
	Analytics bool
	// CacheEnabled keeps recent prompts for identical requests.
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DefaultConfig returns sensible prompt-engineer defaults.
func DefaultConfig() Config {
	return Config{
		DefaultObjective:    types.ObjectiveSolve,
		DefaultStyle:        types.StyleTechnical,
		DefaultLength:       types.LengthMedium,
		MaxTokens:           2048,
		ContextWindow:       8192,
		OptimizationEnabled: true,
		Analytics:           true,
		CacheEnabled:        true,
		CacheTTL:            5 * time.Minute,
	}
}

type cacheEntry struct {
	prompt  types.EngineeredPrompt
	expires time.Time
}

// Engineer produces EngineeredPrompts from EngineeredContexts.
type Engineer struct {
	cfg     Config
	library *Library
	log     zerolog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New creates an Engineer with the builtin template library.
func New(cfg Config) *Engineer {
	if cfg.DefaultObjective == "" {
		cfg.DefaultObjective = types.ObjectiveSolve
	}
	return &Engineer{
		cfg:     cfg,
		library: NewLibrary(),
		log:     logging.For("prompts"),
		cache:   make(map[string]cacheEntry),
	}
}

// Library exposes the template library for registration and outcome
// feedback.
func (e *Engineer) Library() *Library {
	return e.library
}

// Engineer selects a template for the objective, fills its variables from
// the engineered context, runs the optimization pipeline, and returns the
// final prompt with exactly three fallbacks. Template-adaptation and
// optimization failures abort the whole call.
func (e *Engineer) Engineer(ec *types.EngineeredContext, userQuery string, objective types.PromptObjective) (*types.EngineeredPrompt, error) {
	start := time.Now()

	if ec == nil {
		return nil, fmt.Errorf("%w: nil engineered context", ErrPromptGeneration)
	}
	if objective == "" {
		objective = e.cfg.DefaultObjective
	}

	cacheKey := string(objective) + "|" + ec.ID + "|" + userQuery
	if cached, ok := e.cachedPrompt(cacheKey); ok {
		return cached, nil
	}

	tmpl := e.library.Select(objective, ec.Domain.Domain)

	values := e.contextValues(ec, userQuery)
	adapted, elements, err := adaptTemplate(tmpl, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPromptGeneration, err)
	}

	originalLength := len(adapted)
	optimized := adapted
	var strategies []string
	if e.cfg.OptimizationEnabled {
		optimized, strategies = optimize(tmpl, adapted)
	}

	clarity := clarityScore(optimized)
	specificity := specificityScore(optimized)
	actionability := actionabilityScore(optimized)

	successRate := tmpl.SuccessRate
	if successRate == 0 {
		successRate = defaultSuccessRate
	}
	optimizationMean := (clarity + specificity + actionability) / 3
	confidence := types.Clamp01(
		confidenceQualityWeight*ec.Quality.Overall +
			confidenceTemplateWeight*successRate +
			confidenceOptimizationWeight*optimizationMean)

	prompt := &types.EngineeredPrompt{
		ID:              uuid.New().String(),
		Timestamp:       time.Now(),
		Text:            optimized,
		ContextSummary:  ec.Description,
		Objective:       objective,
		ExpectedOutcome: expectedOutcome(objective),
		Confidence:      confidence,
		Fallbacks:       buildFallbacks(ec, userQuery, objective),
		Metadata: types.PromptMetadata{
			TemplateID:      tmpl.ID,
			ContextElements: elements,
			ProcessingTime:  time.Since(start),
			TargetModel:     e.cfg.TargetModel,
			Complexity:      complexityFor(optimized),
			Style:           e.cfg.DefaultStyle,
			Length:          e.cfg.DefaultLength,
			EstimatedTokens: CountTokens(optimized),
		},
		Optimization: types.OptimizationMetrics{
			OriginalLength:  originalLength,
			OptimizedLength: len(optimized),
			Clarity:         clarity,
			Specificity:     specificity,
			Actionability:   actionability,
			Strategies:      strategies,
		},
	}

	if e.cfg.Analytics {
		e.library.RecordUse(tmpl.ID)
	}
	e.storeCached(cacheKey, *prompt)

	e.log.Debug().
		Str("prompt_id", prompt.ID).
		Str("template", tmpl.ID).
		Int("tokens", prompt.Metadata.EstimatedTokens).
		Float64("confidence", confidence).
		Msg("prompt engineered")

	return prompt, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// TEMPLATE ADAPTATION
// ═══════════════════════════════════════════════════════════════════════════════

// contextValues derives the variable substitution map from the engineered
// context and user query.
func (e *Engineer) contextValues(ec *types.EngineeredContext, userQuery string) map[string]string {
	actions := make([]string, 0, 3)
	for i, a := range ec.Actions {
		if i == 3 {
			break
		}
		actions = append(actions, a.Description)
	}

	return map[string]string{
		"USER_QUERY":        userQuery,
		"CONTEXT":           ec.Description,
		"DOMAIN":            ec.Domain.Domain,
		"ENVIRONMENT":       ec.Domain.Domain + " environment",
		"EXPERTISE_LEVEL":   ec.Domain.ExpertiseLevel,
		"SUGGESTED_ACTIONS": strings.Join(actions, "; "),
		"HISTORY":           historySummary(ec.RelevantHistory),
		"TOOLS":             strings.Join(ec.Domain.Tools, ", "),
	}
}

// historySummary renders the ranked history as one sentence.
func historySummary(history []types.ScoredSnapshot) string {
	if len(history) == 0 {
		return "no prior sessions recorded"
	}
	top := history[0].Snapshot.Context
	return fmt.Sprintf("%d related past sessions, most relevant in a %s environment while %s",
		len(history), top.Environment, top.Activity)
}

// adaptTemplate validates the declared variables and substitutes every
// placeholder. Unresolved placeholders never survive into the output; a
// missing required variable is an adaptation error.
func adaptTemplate(t types.PromptTemplate, values map[string]string) (string, []string, error) {
	resolved := make(map[string]string, len(t.Variables))
	elements := make([]string, 0, len(t.Variables))

	for _, v := range t.Variables {
		value, ok := values[v.Name]
		if !ok || value == "" {
			value = v.Default
		}
		if value == "" {
			if v.Required {
				return "", nil, fmt.Errorf("%w: %s", ErrTemplateVariable, v.Name)
			}
			// Optional and absent: the placeholder substitutes to empty
			// rather than surviving into the output.
			resolved[v.Name] = ""
			continue
		}
		if v.Validate != "" {
			re, err := regexp.Compile(v.Validate)
			if err != nil {
				return "", nil, fmt.Errorf("variable %s: bad validation pattern: %w", v.Name, err)
			}
			if !re.MatchString(value) {
				return "", nil, fmt.Errorf("%w: %s failed validation", ErrTemplateVariable, v.Name)
			}
		}
		resolved[v.Name] = value
		elements = append(elements, v.Name)
	}

	adapted := placeholderRe.ReplaceAllStringFunc(t.Body, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := resolved[name]; ok {
			return value
		}
		return match
	})

	if leftover := placeholderRe.FindString(adapted); leftover != "" {
		return "", nil, fmt.Errorf("%w: %s", ErrTemplateVariable, leftover)
	}

	return adapted, elements, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// FALLBACKS / METADATA
// ═══════════════════════════════════════════════════════════════════════════════

// buildFallbacks returns exactly three prompts in increasing order of
// context-independence.
func buildFallbacks(ec *types.EngineeredContext, userQuery string, objective types.PromptObjective) []string {
	framing, ok := genericFraming[objective]
	if !ok {
		framing = "Help the user with the content shown on their screen."
	}

	return []string{
		fmt.Sprintf("Regarding %s work: %s", ec.Domain.Domain, userQuery),
		userQuery,
		framing,
	}
}

func expectedOutcome(objective types.PromptObjective) string {
	switch objective {
	case types.ObjectiveSolve:
		return "a concrete solution the user can apply immediately"
	case types.ObjectiveExplain:
		return "a clear explanation of the visible content"
	case types.ObjectiveDebug:
		return "a diagnosis with a specific fix"
	case types.ObjectiveReview:
		return "a prioritized list of issues and improvements"
	case types.ObjectiveGenerate:
		return "generated content matching the request"
	case types.ObjectiveSummarize:
		return "a faithful summary of the visible content"
	default:
		return "a helpful response grounded in the screen context"
	}
}

func complexityFor(text string) types.ComplexityLevel {
	switch {
	case len(text) < 300:
		return types.ComplexitySimple
	case len(text) < 800:
		return types.ComplexityModerate
	default:
		return types.ComplexityComplex
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CACHE
// ═══════════════════════════════════════════════════════════════════════════════

func (e *Engineer) cachedPrompt(key string) (*types.EngineeredPrompt, bool) {
	if !e.cfg.CacheEnabled {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.cache[key]
	if !ok || time.Now().After(entry.expires) {
		delete(e.cache, key)
		return nil, false
	}
	prompt := entry.prompt
	return &prompt, true
}

func (e *Engineer) storeCached(key string, prompt types.EngineeredPrompt) {
	if !e.cfg.CacheEnabled || e.cfg.CacheTTL <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[key] = cacheEntry{prompt: prompt, expires: time.Now().Add(e.cfg.CacheTTL)}
}
