// Package synthesizer combines a fresh screen context, retrieved history,
// and static domain knowledge into an EngineeredContext.
package synthesizer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/glimpse/internal/logging"
	"github.com/normanking/glimpse/internal/memory"
	"github.com/normanking/glimpse/pkg/types"
)

// ErrSynthesis wraps any failure during synthesis. No partial
// EngineeredContext is ever surfaced alongside it.
var ErrSynthesis = errors.New("context synthesis failed")

// Overall quality score weights.
const (
	qualityAccuracyWeight      = 0.25
	qualityCompletenessWeight  = 0.2
	qualityRelevanceWeight     = 0.2
	qualityTimelinessWeight    = 0.15
	qualityActionabilityWeight = 0.2

	// timelinessWindow is the horizon over which a context goes stale.
	timelinessWindow = 5 * time.Minute

	// carriedActionImpact is the fixed estimated impact for actions
	// carried over from the intent analysis.
	carriedActionImpact = 0.7
)

// Signal weight tables, keyed by classification value. These feed the
// situational description step only — the quality metrics have their own
// formulas and must stay independent of this table.
var environmentWeights = map[types.EnvironmentType]float64{
	types.EnvIDE:            0.9,
	types.EnvBrowser:        0.8,
	types.EnvDesignTool:     0.85,
	types.EnvDocumentEditor: 0.75,
	types.EnvTerminal:       0.85,
	types.EnvMixed:          0.5,
	types.EnvUnknown:        0.3,
}

var activityWeights = map[types.ActivityType]float64{
	types.ActivityCoding:        0.9,
	types.ActivityDebugging:     0.85,
	types.ActivityWriting:       0.8,
	types.ActivityResearch:      0.75,
	types.ActivityDesign:        0.8,
	types.ActivityCommunication: 0.6,
	types.ActivityLearning:      0.7,
	types.ActivityIdle:          0.3,
}

// Config holds synthesizer tuning knobs.
type Config struct {
	// MaxHistory bounds how many ranked snapshots are kept in the output.
	MaxHistory int
}

// DefaultConfig returns sensible synthesizer defaults.
func DefaultConfig() Config {
	return Config{MaxHistory: 5}
}

// Synthesizer owns the static domain-knowledge table, read-only after
// construction.
type Synthesizer struct {
	cfg     Config
	domains map[string]types.DomainKnowledge
	log     zerolog.Logger
}

// New creates a Synthesizer with the builtin domain-knowledge table.
func New(cfg Config) *Synthesizer {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultConfig().MaxHistory
	}
	return &Synthesizer{
		cfg:     cfg,
		domains: defaultDomainKnowledge(),
		log:     logging.For("synthesizer"),
	}
}

// Synthesize builds an EngineeredContext from the current context, the
// candidate history, and an optional intent override. Any step failure
// aborts the whole call.
func (s *Synthesizer) Synthesize(current types.ScreenContext, history []types.ContextSnapshot, intent *types.IntentAnalysis) (*types.EngineeredContext, error) {
	start := time.Now()

	if current.ID == "" {
		return nil, fmt.Errorf("%w: context has no identifier", ErrSynthesis)
	}
	if current.Environment == "" || current.Activity == "" {
		return nil, fmt.Errorf("%w: context missing classification", ErrSynthesis)
	}

	if intent == nil {
		intent = &current.Intent
	}

	weights := s.computeWeights(current, intent)

	domainLabel := resolveDomain(current.Environment, current.Activity)
	base, ok := s.domains[domainLabel]
	if !ok {
		return nil, fmt.Errorf("%w: no knowledge record for domain %q", ErrSynthesis, domainLabel)
	}
	domain := customizeDomain(base, current.Environment, current.Activity)

	relevant := s.selectHistory(current, history)
	actions := s.generateActions(current, domain, intent)
	description := buildDescription(current, weights)
	quality := s.scoreQuality(current, domain, relevant, actions)

	ec := &types.EngineeredContext{
		ID:              uuid.New().String(),
		Timestamp:       time.Now(),
		Description:     description,
		RelevantHistory: relevant,
		Domain:          domain,
		Actions:         actions,
		Quality:         quality,
		Metadata: types.SynthesisMetadata{
			ProcessingTime:    time.Since(start),
			SourcesUsed:       sourcesUsed(current, relevant),
			ModelsInvolved:    []string{"heuristic-v1"},
			ConfidenceFactors: weights,
		},
	}

	s.log.Debug().
		Str("context_id", ec.ID).
		Str("domain", domainLabel).
		Int("history", len(relevant)).
		Float64("quality", quality.Overall).
		Msg("context synthesized")

	return ec, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// WEIGHTING
// ═══════════════════════════════════════════════════════════════════════════════

// computeWeights derives the five signal weights from the lookup tables
// plus signal-richness bonuses, each capped at 1.0.
func (s *Synthesizer) computeWeights(sc types.ScreenContext, intent *types.IntentAnalysis) map[string]float64 {
	envWeight, ok := environmentWeights[sc.Environment]
	if !ok {
		envWeight = environmentWeights[types.EnvUnknown]
	}
	actWeight, ok := activityWeights[sc.Activity]
	if !ok {
		actWeight = activityWeights[types.ActivityIdle]
	}

	appWeight := 0.4
	if sc.App.ActiveApplication != "" && sc.App.ActiveApplication != "unknown" {
		appWeight += 0.4
	}
	if sc.App.WindowTitle != "" {
		appWeight += 0.2
	}

	contentWeight := 0.3
	for _, group := range [][]string{
		sc.Content.TextSpans, sc.Content.CodeSnippets, sc.Content.UIElements,
		sc.Content.MediaElements, sc.Content.StructuralElements, sc.Content.SemanticTags,
	} {
		if len(group) > 0 {
			contentWeight += 0.15
		}
	}

	intentWeight := 0.3
	if intent.Primary != "" {
		intentWeight += 0.3
	}
	if len(intent.SuggestedActions) > 0 {
		intentWeight += 0.2
	}
	if len(intent.Secondary) > 0 {
		intentWeight += 0.2
	}

	return map[string]float64{
		"environment": types.Clamp01(envWeight),
		"activity":    types.Clamp01(actWeight),
		"application": types.Clamp01(appWeight),
		"content":     types.Clamp01(contentWeight),
		"intent":      types.Clamp01(intentWeight),
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// DESCRIPTION
// ═══════════════════════════════════════════════════════════════════════════════

// buildDescription emits the deterministic situational sentence. Clauses
// appear in fixed order; weights gate nothing today but stay the input of
// this step alone.
func buildDescription(sc types.ScreenContext, weights map[string]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User is working in a %s environment", sc.Environment)

	if sc.Activity != types.ActivityIdle {
		fmt.Fprintf(&b, ", currently %s", sc.Activity)
	}
	if sc.App.ActiveApplication != "" && sc.App.ActiveApplication != "unknown" {
		fmt.Fprintf(&b, " in %s", sc.App.ActiveApplication)
	}
	if title := sc.App.WindowTitle; title != "" {
		// Truncate on rune boundaries so multi-byte titles stay valid UTF-8.
		if r := []rune(title); len(r) > 50 {
			title = string(r[:50]) + "..."
		}
		fmt.Fprintf(&b, " with window %q", title)
	}
	if len(sc.Content.CodeSnippets) > 0 {
		b.WriteString(", code visible on screen")
	}

	qualifier := "low"
	switch {
	case sc.Confidence > 0.8:
		qualifier = "high"
	case sc.Confidence > 0.5:
		qualifier = "moderate"
	}
	fmt.Fprintf(&b, " (%s confidence)", qualifier)

	return b.String()
}

// ═══════════════════════════════════════════════════════════════════════════════
// HISTORY / ACTIONS
// ═══════════════════════════════════════════════════════════════════════════════

// selectHistory ranks the candidate snapshots with the shared relevance
// contract from the memory package and keeps the top N.
func (s *Synthesizer) selectHistory(current types.ScreenContext, history []types.ContextSnapshot) []types.ScoredSnapshot {
	scored := make([]types.ScoredSnapshot, 0, len(history))
	for _, snap := range history {
		if snap.Context.ID == current.ID {
			continue
		}
		scored = append(scored, types.ScoredSnapshot{
			Snapshot: snap,
			Score:    memory.Relevance(current, snap),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > s.cfg.MaxHistory {
		scored = scored[:s.cfg.MaxHistory]
	}
	return scored
}

// generateActions merges intent-carried, domain-specific, and
// environment-specific actions, ranked by priority × estimated impact.
func (s *Synthesizer) generateActions(sc types.ScreenContext, domain types.DomainKnowledge, intent *types.IntentAnalysis) []types.SuggestedAction {
	actions := make([]types.SuggestedAction, 0, len(intent.SuggestedActions)+2)

	for _, a := range intent.SuggestedActions {
		actions = append(actions, types.SuggestedAction{
			Description:     a.Description,
			Priority:        a.Priority,
			EstimatedImpact: carriedActionImpact,
		})
	}

	if domain.Domain == DomainDevelopment && sc.Activity == types.ActivityCoding {
		actions = append(actions, types.SuggestedAction{
			Description:     "review the visible code for correctness",
			Priority:        0.7,
			EstimatedImpact: 0.8,
		})
	}
	if domain.Domain == DomainSysAdmin {
		actions = append(actions, types.SuggestedAction{
			Description:     "explain the last command output",
			Priority:        0.6,
			EstimatedImpact: 0.7,
		})
	}

	switch sc.Environment {
	case types.EnvIDE:
		actions = append(actions, types.SuggestedAction{
			Description:     "analyze visible code",
			Priority:        0.6,
			EstimatedImpact: 0.7,
		})
	case types.EnvBrowser:
		actions = append(actions, types.SuggestedAction{
			Description:     "summarize the open page",
			Priority:        0.5,
			EstimatedImpact: 0.6,
		})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority*actions[i].EstimatedImpact > actions[j].Priority*actions[j].EstimatedImpact
	})
	return actions
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUALITY
// ═══════════════════════════════════════════════════════════════════════════════

// scoreQuality computes the five sub-scores and the fixed weighted
// overall. Every score is clamped to [0, 1].
func (s *Synthesizer) scoreQuality(sc types.ScreenContext, domain types.DomainKnowledge, relevant []types.ScoredSnapshot, actions []types.SuggestedAction) types.QualityMetrics {
	accuracy := types.Clamp01(sc.Confidence)

	populated := 0.0
	if sc.Environment != types.EnvUnknown {
		populated++
	}
	if sc.Activity != types.ActivityIdle {
		populated++
	}
	if sc.App.ActiveApplication != "" && sc.App.ActiveApplication != "unknown" {
		populated++
	}
	if len(sc.Content.TextSpans)+len(sc.Content.CodeSnippets) > 0 {
		populated++
	}
	if sc.Intent.Primary != "" {
		populated++
	}
	completeness := types.Clamp01(populated / 5)

	relevance := 0.0
	if len(relevant) > 0 {
		sum := 0.0
		for _, r := range relevant {
			sum += r.Score
		}
		relevance = types.Clamp01(sum / float64(len(relevant)))
	}

	age := time.Since(sc.Timestamp)
	timeliness := types.Clamp01(1 - age.Seconds()/timelinessWindow.Seconds())

	actionability := types.Clamp01(float64(len(actions)) / 5)

	overall := types.Clamp01(
		qualityAccuracyWeight*accuracy +
			qualityCompletenessWeight*completeness +
			qualityRelevanceWeight*relevance +
			qualityTimelinessWeight*timeliness +
			qualityActionabilityWeight*actionability)

	return types.QualityMetrics{
		Accuracy:      accuracy,
		Completeness:  completeness,
		Relevance:     relevance,
		Timeliness:    timeliness,
		Actionability: actionability,
		Overall:       overall,
	}
}

func sourcesUsed(sc types.ScreenContext, relevant []types.ScoredSnapshot) []string {
	sources := make([]string, 0, len(sc.Sources)+2)
	for _, s := range sc.Sources {
		sources = append(sources, string(s))
	}
	if len(relevant) > 0 {
		sources = append(sources, "context-memory")
	}
	sources = append(sources, "domain-knowledge")
	return sources
}
