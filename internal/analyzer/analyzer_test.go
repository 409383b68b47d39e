package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/glimpse/pkg/types"
)

func TestClassifyEnvironment(t *testing.T) {
	c := NewHeuristicEnvironmentClassifier()

	tests := []struct {
		name    string
		sig     Signals
		wantEnv types.EnvironmentType
		minConf float64
	}{
		{
			name:    "vscode window title",
			sig:     Signals{WindowTitle: "main.go - myproject - VSCode"},
			wantEnv: types.EnvIDE,
			minConf: 0.4,
		},
		{
			name:    "intellij application name",
			sig:     Signals{ActiveApplication: "IntelliJ IDEA"},
			wantEnv: types.EnvIDE,
			minConf: 0.4,
		},
		{
			name:    "browser",
			sig:     Signals{ActiveApplication: "Google Chrome"},
			wantEnv: types.EnvBrowser,
			minConf: 0.3,
		},
		{
			name:    "design tool",
			sig:     Signals{WindowTitle: "Homepage mockup - Figma"},
			wantEnv: types.EnvDesignTool,
			minConf: 0.4,
		},
		{
			name:    "terminal",
			sig:     Signals{ActiveApplication: "iTerm2"},
			wantEnv: types.EnvTerminal,
			minConf: 0.4,
		},
		{
			name:    "no signals",
			sig:     Signals{},
			wantEnv: types.EnvUnknown,
			minConf: 0.1,
		},
		{
			name:    "unrecognized app",
			sig:     Signals{ActiveApplication: "Solitaire"},
			wantEnv: types.EnvUnknown,
			minConf: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, conf, _ := c.ClassifyEnvironment(tt.sig)
			assert.Equal(t, tt.wantEnv, env)
			assert.GreaterOrEqual(t, conf, tt.minConf)
		})
	}
}

func TestEnvironmentTieBreakPrefersIDE(t *testing.T) {
	c := NewHeuristicEnvironmentClassifier()

	// Both an IDE and a browser indicator present; vocabulary order wins.
	env, conf, matched := c.ClassifyEnvironment(Signals{
		WindowTitle: "vscode docs - Google Chrome",
	})
	assert.Equal(t, types.EnvIDE, env)
	assert.GreaterOrEqual(t, conf, 0.4)
	assert.Equal(t, []string{"vscode"}, matched)
}

func TestClassifyActivity(t *testing.T) {
	c := NewHeuristicActivityClassifier()

	tests := []struct {
		name    string
		text    string
		want    types.ActivityType
		minConf float64
	}{
		{
			name:    "go function",
			text:    "func handleRequest(w http.ResponseWriter) {",
			want:    types.ActivityCoding,
			minConf: 0.3,
		},
		{
			name:    "python def",
			text:    "def compute_total(items):",
			want:    types.ActivityCoding,
			minConf: 0.3,
		},
		{
			name:    "prose paragraph",
			text:    "The quarterly report shows steady growth across regions. Revenue in the northern territory exceeded projections by a wide margin.",
			want:    types.ActivityWriting,
			minConf: 0.2,
		},
		{
			name:    "empty selection",
			text:    "",
			want:    types.ActivityIdle,
			minConf: 0.1,
		},
		{
			name:    "short fragment",
			text:    "ok",
			want:    types.ActivityIdle,
			minConf: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, conf, _ := c.ClassifyActivity(Signals{SelectedText: tt.text})
			assert.Equal(t, tt.want, act)
			assert.GreaterOrEqual(t, conf, tt.minConf)
		})
	}
}

func TestAnalyzeProducesBoundedConfidence(t *testing.T) {
	a := New(DefaultConfig())

	sc, err := a.Analyze(context.Background(), []string{"shot-1"}, Signals{
		WindowTitle:       "broken_test.go - VSCode",
		ActiveApplication: "VSCode",
		SelectedText:      "func TestBroken(t *testing.T) { panic: runtime error }",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sc.ID)
	assert.False(t, sc.Timestamp.IsZero())
	assert.Equal(t, types.EnvIDE, sc.Environment)
	assert.Equal(t, types.ActivityCoding, sc.Activity)
	assert.GreaterOrEqual(t, sc.Confidence, 0.0)
	assert.LessOrEqual(t, sc.Confidence, 1.0)

	// A rich signal set should clear the default warning threshold.
	assert.Greater(t, sc.Confidence, 0.3)
}

func TestAnalyzeEmptySignals(t *testing.T) {
	a := New(DefaultConfig())

	sc, err := a.Analyze(context.Background(), nil, Signals{})
	require.NoError(t, err)

	assert.Equal(t, types.EnvUnknown, sc.Environment)
	assert.Equal(t, types.ActivityIdle, sc.Activity)
	assert.GreaterOrEqual(t, sc.Confidence, 0.0)
	assert.LessOrEqual(t, sc.Confidence, 1.0)
	assert.Equal(t, []types.SignalSource{types.SourceScreenshot}, sc.Sources)
}

func TestAnalyzeErrorIntent(t *testing.T) {
	a := New(DefaultConfig())

	sc, err := a.Analyze(context.Background(), nil, Signals{
		WindowTitle: "Terminal - panic: runtime error: index out of range",
	})
	require.NoError(t, err)

	assert.Equal(t, "resolve the visible error", sc.Intent.Primary)
	assert.Equal(t, types.UrgencyHigh, sc.Intent.Urgency)
	require.Len(t, sc.Intent.SuggestedActions, 2)
	assert.Equal(t, 0.9, sc.Intent.SuggestedActions[0].Priority)
}

func TestAnalyzeUpdatesActiveContext(t *testing.T) {
	a := New(DefaultConfig())
	assert.Nil(t, a.ActiveContext())

	sc, err := a.Analyze(context.Background(), nil, Signals{WindowTitle: "notes - Obsidian"})
	require.NoError(t, err)
	assert.Equal(t, sc.ID, a.ActiveContext().ID)
}

func TestFilterSignalsDropsDisabledSources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnabledSources = []types.SignalSource{types.SourceScreenshot, types.SourceWindowTitle}
	a := New(cfg)

	sc, err := a.Analyze(context.Background(), nil, Signals{
		WindowTitle:      "report - Google Docs",
		ClipboardContent: "func ignored() {}",
		SelectedText:     "func ignored() {}",
	})
	require.NoError(t, err)

	// With clipboard and selection filtered out, nothing trips the code path.
	assert.Equal(t, types.ActivityIdle, sc.Activity)
	assert.Empty(t, sc.Content.CodeSnippets)
	assert.Equal(t, []types.SignalSource{types.SourceScreenshot, types.SourceWindowTitle}, sc.Sources)
}

func TestAnalyzeContentDepth(t *testing.T) {
	code := "const total = items.reduce(sum)"

	shallow, conf := analyzeContent(Signals{SelectedText: code, WindowTitle: "app.js"}, DepthModerate)
	assert.Empty(t, shallow.StructuralElements)
	assert.Equal(t, []string{code}, shallow.CodeSnippets)
	assert.InDelta(t, 0.4, conf, 1e-9)

	deep, _ := analyzeContent(Signals{SelectedText: code, WindowTitle: "app.js"}, DepthDeep)
	assert.Equal(t, []string{"app.js"}, deep.StructuralElements)
}

func TestIsCodeContent(t *testing.T) {
	assert.True(t, IsCodeContent("class OrderService {"))
	assert.True(t, IsCodeContent("<div class=\"header\">"))
	assert.False(t, IsCodeContent("Meeting notes from Tuesday"))
}
