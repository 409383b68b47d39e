package synthesizer

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/glimpse/pkg/types"
)

func screenContext(env types.EnvironmentType, act types.ActivityType, confidence float64) types.ScreenContext {
	return types.ScreenContext{
		ID:          "ctx-1",
		Timestamp:   time.Now(),
		Environment: env,
		Activity:    act,
		Confidence:  confidence,
	}
}

func TestSynthesizeValidation(t *testing.T) {
	s := New(DefaultConfig())

	_, err := s.Synthesize(types.ScreenContext{}, nil, nil)
	assert.ErrorIs(t, err, ErrSynthesis)

	_, err = s.Synthesize(types.ScreenContext{ID: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrSynthesis)
}

func TestSynthesizeTerminalDebugging(t *testing.T) {
	s := New(DefaultConfig())

	sc := screenContext(types.EnvTerminal, types.ActivityDebugging, 0.9)
	sc.App = types.ApplicationDetails{ActiveApplication: "iTerm2"}

	ec, err := s.Synthesize(sc, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, DomainSysAdmin, ec.Domain.Domain)
	assert.Contains(t, ec.Description, "User is working in a terminal environment")
	assert.Contains(t, ec.Description, "currently debugging")
	assert.Contains(t, ec.Description, "(high confidence)")
}

func TestSynthesizeDomainResolution(t *testing.T) {
	s := New(DefaultConfig())

	tests := []struct {
		env    types.EnvironmentType
		act    types.ActivityType
		domain string
	}{
		{types.EnvIDE, types.ActivityCoding, DomainDevelopment},
		{types.EnvBrowser, types.ActivityCoding, DomainDevelopment},
		{types.EnvBrowser, types.ActivityResearch, DomainResearch},
		{types.EnvDesignTool, types.ActivityDesign, DomainDesign},
		{types.EnvDocumentEditor, types.ActivityWriting, DomainWriting},
		{types.EnvTerminal, types.ActivityIdle, DomainSysAdmin},
		{types.EnvUnknown, types.ActivityIdle, DomainGeneral},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s-%s", tt.env, tt.act), func(t *testing.T) {
			ec, err := s.Synthesize(screenContext(tt.env, tt.act, 0.5), nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.domain, ec.Domain.Domain)
		})
	}
}

func TestDescriptionConfidenceQualifiers(t *testing.T) {
	s := New(DefaultConfig())

	tests := []struct {
		confidence float64
		qualifier  string
	}{
		{0.9, "(high confidence)"},
		{0.6, "(moderate confidence)"},
		{0.3, "(low confidence)"},
	}
	for _, tt := range tests {
		ec, err := s.Synthesize(screenContext(types.EnvIDE, types.ActivityCoding, tt.confidence), nil, nil)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(ec.Description, tt.qualifier), ec.Description)
	}
}

func TestDescriptionTruncatesLongTitle(t *testing.T) {
	s := New(DefaultConfig())

	sc := screenContext(types.EnvIDE, types.ActivityCoding, 0.5)
	sc.App.WindowTitle = strings.Repeat("x", 80)

	ec, err := s.Synthesize(sc, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, ec.Description, strings.Repeat("x", 50)+"...")
	assert.NotContains(t, ec.Description, strings.Repeat("x", 51))
}

func TestDescriptionTruncatesMultiByteTitleCleanly(t *testing.T) {
	s := New(DefaultConfig())

	sc := screenContext(types.EnvIDE, types.ActivityCoding, 0.5)
	sc.App.WindowTitle = strings.Repeat("界", 60)

	ec, err := s.Synthesize(sc, nil, nil)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(ec.Description), ec.Description)
	assert.Contains(t, ec.Description, strings.Repeat("界", 50)+"...")
	assert.NotContains(t, ec.Description, string(utf8.RuneError))
}

func TestSelectHistoryExcludesSelfAndBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHistory = 2
	s := New(cfg)

	current := screenContext(types.EnvIDE, types.ActivityCoding, 0.8)
	history := []types.ContextSnapshot{
		{Context: current}, // same ID, must be excluded
	}
	for i := 0; i < 4; i++ {
		past := screenContext(types.EnvIDE, types.ActivityCoding, 0.8)
		past.ID = fmt.Sprintf("past-%d", i)
		past.Timestamp = time.Now().Add(-time.Duration(i+1) * time.Hour)
		history = append(history, types.ContextSnapshot{Context: past})
	}

	ec, err := s.Synthesize(current, history, nil)
	require.NoError(t, err)

	require.Len(t, ec.RelevantHistory, 2)
	for _, r := range ec.RelevantHistory {
		assert.NotEqual(t, current.ID, r.Snapshot.Context.ID)
	}
	// Best match first.
	assert.GreaterOrEqual(t, ec.RelevantHistory[0].Score, ec.RelevantHistory[1].Score)
}

func TestGenerateActionsRankedAndMerged(t *testing.T) {
	s := New(DefaultConfig())

	sc := screenContext(types.EnvIDE, types.ActivityCoding, 0.8)
	sc.Intent = types.IntentAnalysis{
		Primary: "resolve the visible error",
		SuggestedActions: []types.SuggestedAction{
			{Description: "investigate the visible error", Priority: 0.9},
		},
	}

	ec, err := s.Synthesize(sc, nil, nil)
	require.NoError(t, err)

	require.NotEmpty(t, ec.Actions)
	// The carried intent action (0.9 × 0.7) outranks the domain action (0.7 × 0.8)
	// only when its product is higher; here 0.63 > 0.56.
	assert.Equal(t, "investigate the visible error", ec.Actions[0].Description)

	descriptions := make([]string, 0, len(ec.Actions))
	for _, a := range ec.Actions {
		descriptions = append(descriptions, a.Description)
	}
	assert.Contains(t, descriptions, "review the visible code for correctness")
	assert.Contains(t, descriptions, "analyze visible code")

	for i := 1; i < len(ec.Actions); i++ {
		prev := ec.Actions[i-1].Priority * ec.Actions[i-1].EstimatedImpact
		curr := ec.Actions[i].Priority * ec.Actions[i].EstimatedImpact
		assert.GreaterOrEqual(t, prev, curr)
	}
}

func TestQualityMetricsBounded(t *testing.T) {
	s := New(DefaultConfig())

	sc := screenContext(types.EnvIDE, types.ActivityCoding, 0.9)
	sc.App = types.ApplicationDetails{ActiveApplication: "GoLand", WindowTitle: "service.go"}
	sc.Content.CodeSnippets = []string{"func main() {}"}
	sc.Intent.Primary = "general assistance"

	past := screenContext(types.EnvIDE, types.ActivityCoding, 0.8)
	past.ID = "past-1"
	past.Timestamp = time.Now().Add(-time.Hour)

	ec, err := s.Synthesize(sc, []types.ContextSnapshot{{Context: past}}, nil)
	require.NoError(t, err)

	q := ec.Quality
	for name, v := range map[string]float64{
		"accuracy":      q.Accuracy,
		"completeness":  q.Completeness,
		"relevance":     q.Relevance,
		"timeliness":    q.Timeliness,
		"actionability": q.Actionability,
		"overall":       q.Overall,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}

	// Fully populated context: all five completeness factors present.
	assert.InDelta(t, 1.0, q.Completeness, 1e-9)
	// A fresh context is fully timely.
	assert.Greater(t, q.Timeliness, 0.9)
}

func TestQualityStaleContext(t *testing.T) {
	s := New(DefaultConfig())

	sc := screenContext(types.EnvIDE, types.ActivityCoding, 0.5)
	sc.Timestamp = time.Now().Add(-10 * time.Minute)

	ec, err := s.Synthesize(sc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ec.Quality.Timeliness)
}

func TestCustomizeDomainDoesNotMutateBase(t *testing.T) {
	s := New(DefaultConfig())

	first, err := s.Synthesize(screenContext(types.EnvIDE, types.ActivityCoding, 0.5), nil, nil)
	require.NoError(t, err)
	toolsBefore := len(first.Domain.Tools)

	// Synthesizing again must not grow the shared table.
	second, err := s.Synthesize(screenContext(types.EnvIDE, types.ActivityCoding, 0.5), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, toolsBefore, len(second.Domain.Tools))
}

func TestMetadataRecordsWeights(t *testing.T) {
	s := New(DefaultConfig())

	ec, err := s.Synthesize(screenContext(types.EnvIDE, types.ActivityCoding, 0.5), nil, nil)
	require.NoError(t, err)

	weights := ec.Metadata.ConfidenceFactors
	require.NotNil(t, weights)
	assert.InDelta(t, 0.9, weights["environment"], 1e-9)
	assert.InDelta(t, 0.9, weights["activity"], 1e-9)
	for name, v := range weights {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
	assert.Contains(t, ec.Metadata.SourcesUsed, "domain-knowledge")
}
