package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/glimpse/internal/logging"
	"github.com/normanking/glimpse/pkg/types"
)

// ErrAnalysis wraps any sub-classification failure. No partial
// ScreenContext is ever returned alongside it.
var ErrAnalysis = errors.New("context analysis failed")

// AnalysisDepth controls how much content extraction the analyzer does.
type AnalysisDepth string

const (
	DepthSurface  AnalysisDepth = "surface"
	DepthModerate AnalysisDepth = "moderate"
	DepthDeep     AnalysisDepth = "deep"
)

// Config holds analyzer tuning knobs.
type Config struct {
	// EnabledSources limits which auxiliary signals are consumed.
	EnabledSources []types.SignalSource
	// Depth selects surface, moderate, or deep content extraction.
	Depth AnalysisDepth
	// RealTime marks the analyzer as serving interactive captures.
	RealTime bool
	// BatchSize bounds how many screenshot references one call accepts.
	BatchSize int
	// ConfidenceThreshold triggers a warning log for weak classifications.
	ConfidenceThreshold float64
}

// DefaultConfig returns sensible analyzer defaults.
func DefaultConfig() Config {
	return Config{
		EnabledSources: []types.SignalSource{
			types.SourceScreenshot,
			types.SourceWindowTitle,
			types.SourceApplicationState,
			types.SourceUserInput,
			types.SourceClipboard,
		},
		Depth:               DepthModerate,
		RealTime:            true,
		BatchSize:           4,
		ConfidenceThreshold: 0.3,
	}
}

// Aggregation weights for the overall confidence. Declared here rather
// than inline so the formula stays testable and tunable.
const (
	weightEnvironment = 0.3
	weightActivity    = 0.2
	weightApplication = 0.2
	weightContent     = 0.2
	weightIntent      = 0.1
)

// Signals carries the optional auxiliary inputs alongside screenshots.
// Every field is independently optional.
type Signals struct {
	WindowTitle       string
	ActiveApplication string
	ClipboardContent  string
	SelectedText      string
}

// Analyzer assembles a ScreenContext from screenshots and auxiliary
// signals. The five sub-classifications run concurrently; each writes its
// own result slot, so no locking is needed during the fan-out.
type Analyzer struct {
	cfg Config
	env EnvironmentClassifier
	act ActivityClassifier
	log zerolog.Logger

	mu     sync.RWMutex
	active *types.ScreenContext
}

// New creates an Analyzer with the default heuristic classifiers.
func New(cfg Config) *Analyzer {
	return &Analyzer{
		cfg: cfg,
		env: NewHeuristicEnvironmentClassifier(),
		act: NewHeuristicActivityClassifier(),
		log: logging.For("analyzer"),
	}
}

// WithClassifiers swaps in alternative classification strategies.
func (a *Analyzer) WithClassifiers(env EnvironmentClassifier, act ActivityClassifier) *Analyzer {
	a.env = env
	a.act = act
	return a
}

// subResults collects the typed outputs of the five concurrent
// sub-classifications.
type subResults struct {
	environment     types.EnvironmentType
	environmentConf float64

	activity     types.ActivityType
	activityConf float64

	app     types.ApplicationDetails
	appConf float64

	content     types.ContentAnalysis
	contentConf float64

	intent     types.IntentAnalysis
	intentConf float64
}

// Analyze classifies the current screen state. screenshots may be empty;
// every signal field may be blank. On any sub-classification error the
// whole call fails and no partial context is returned.
func (a *Analyzer) Analyze(ctx context.Context, screenshots []string, sig Signals) (*types.ScreenContext, error) {
	sig = a.filterSignals(sig)

	if a.cfg.BatchSize > 0 && len(screenshots) > a.cfg.BatchSize {
		screenshots = screenshots[:a.cfg.BatchSize]
	}

	var res subResults
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		res.environment, res.environmentConf, _ = a.env.ClassifyEnvironment(sig)
		if res.environment == "" {
			return fmt.Errorf("environment classifier returned no value")
		}
		return nil
	})
	g.Go(func() error {
		res.activity, res.activityConf, _ = a.act.ClassifyActivity(sig)
		if res.activity == "" {
			return fmt.Errorf("activity classifier returned no value")
		}
		return nil
	})
	g.Go(func() error {
		res.app, res.appConf = extractApplication(sig)
		return nil
	})
	g.Go(func() error {
		res.content, res.contentConf = analyzeContent(sig, a.cfg.Depth)
		return nil
	})
	g.Go(func() error {
		res.intent, res.intentConf = analyzeIntent(sig)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	confidence := types.Clamp01(
		weightEnvironment*res.environmentConf +
			weightActivity*res.activityConf +
			weightApplication*res.appConf +
			weightContent*res.contentConf +
			weightIntent*res.intentConf)

	sc := &types.ScreenContext{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Environment: res.environment,
		Activity:    res.activity,
		Confidence:  confidence,
		App:         res.app,
		Content:     res.content,
		Intent:      res.intent,
		Sources:     attributeSources(sig),
	}

	if confidence < a.cfg.ConfidenceThreshold {
		a.log.Warn().
			Str("context_id", sc.ID).
			Float64("confidence", confidence).
			Msg("classification confidence below threshold")
	} else {
		a.log.Debug().
			Str("context_id", sc.ID).
			Str("environment", string(sc.Environment)).
			Str("activity", string(sc.Activity)).
			Float64("confidence", confidence).
			Msg("screen context classified")
	}

	a.mu.Lock()
	a.active = sc
	a.mu.Unlock()

	return sc, nil
}

// ActiveContext returns the most recent classification, or nil before the
// first successful Analyze call.
func (a *Analyzer) ActiveContext() *types.ScreenContext {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// filterSignals blanks out signals whose source is not enabled.
func (a *Analyzer) filterSignals(sig Signals) Signals {
	enabled := make(map[types.SignalSource]bool, len(a.cfg.EnabledSources))
	for _, s := range a.cfg.EnabledSources {
		enabled[s] = true
	}

	if !enabled[types.SourceWindowTitle] {
		sig.WindowTitle = ""
	}
	if !enabled[types.SourceApplicationState] {
		sig.ActiveApplication = ""
	}
	if !enabled[types.SourceUserInput] {
		sig.SelectedText = ""
	}
	if !enabled[types.SourceClipboard] {
		sig.ClipboardContent = ""
	}
	return sig
}

// attributeSources always includes the screenshot source and adds one
// entry per non-empty auxiliary signal.
func attributeSources(sig Signals) []types.SignalSource {
	sources := []types.SignalSource{types.SourceScreenshot}
	if sig.WindowTitle != "" {
		sources = append(sources, types.SourceWindowTitle)
	}
	if sig.ActiveApplication != "" {
		sources = append(sources, types.SourceApplicationState)
	}
	if sig.SelectedText != "" {
		sources = append(sources, types.SourceUserInput)
	}
	if sig.ClipboardContent != "" {
		sources = append(sources, types.SourceClipboard)
	}
	return sources
}

// extractApplication builds the application detail record.
func extractApplication(sig Signals) (types.ApplicationDetails, float64) {
	details := types.ApplicationDetails{
		ActiveApplication: sig.ActiveApplication,
		WindowTitle:       sig.WindowTitle,
		Selection:         sig.SelectedText,
	}
	if details.ActiveApplication == "" {
		details.ActiveApplication = "unknown"
		return details, 0.2
	}
	return details, 0.8
}

// analyzeContent extracts text spans, code snippets, and semantic tags
// from the auxiliary signals. Screenshot pixels are never inspected here;
// this is the placeholder for a future vision model.
func analyzeContent(sig Signals, depth AnalysisDepth) (types.ContentAnalysis, float64) {
	var ca types.ContentAnalysis
	confidence := 0.2

	for _, text := range []string{sig.SelectedText, sig.ClipboardContent} {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if IsCodeContent(text) {
			ca.CodeSnippets = append(ca.CodeSnippets, text)
			ca.SemanticTags = appendUnique(ca.SemanticTags, "code")
		} else {
			ca.TextSpans = append(ca.TextSpans, text)
			ca.SemanticTags = appendUnique(ca.SemanticTags, "text")
		}
		confidence += 0.2
	}

	if depth == DepthDeep && sig.WindowTitle != "" {
		// Deep mode keeps the raw title as a structural hint for the
		// synthesizer's description step.
		ca.StructuralElements = append(ca.StructuralElements, sig.WindowTitle)
	}

	return ca, types.Clamp01(confidence)
}

var errorKeywords = []string{"error", "exception", "failed", "traceback", "panic", "stack trace"}

// analyzeIntent infers what the user likely wants from the visible text.
func analyzeIntent(sig Signals) (types.IntentAnalysis, float64) {
	haystack := strings.ToLower(sig.WindowTitle + " " + sig.SelectedText)

	for _, kw := range errorKeywords {
		if strings.Contains(haystack, kw) {
			return types.IntentAnalysis{
				Primary:    "resolve the visible error",
				Secondary:  []string{"understand the root cause"},
				Urgency:    types.UrgencyHigh,
				Complexity: types.ComplexityModerate,
				SuggestedActions: []types.SuggestedAction{
					{Description: "investigate the visible error", Priority: 0.9},
					{Description: "search for the error message", Priority: 0.6},
				},
			}, 0.5
		}
	}

	if strings.Contains(haystack, "how ") || strings.Contains(haystack, "what ") || strings.Contains(haystack, "why ") {
		return types.IntentAnalysis{
			Primary:    "answer an open question",
			Urgency:    types.UrgencyMedium,
			Complexity: types.ComplexitySimple,
			SuggestedActions: []types.SuggestedAction{
				{Description: "summarize the relevant material", Priority: 0.7},
			},
		}, 0.4
	}

	return types.IntentAnalysis{
		Primary:    "general assistance",
		Urgency:    types.UrgencyLow,
		Complexity: types.ComplexitySimple,
	}, 0.2
}

func appendUnique(slice []string, s string) []string {
	for _, existing := range slice {
		if existing == s {
			return slice
		}
	}
	return append(slice, s)
}
