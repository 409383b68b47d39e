package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/glimpse/internal/analyzer"
	"github.com/normanking/glimpse/internal/memory"
	"github.com/normanking/glimpse/pkg/types"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "moderate", cfg.Analyzer.Depth)
	assert.Equal(t, 8917, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad depth", func(c *Config) { c.Analyzer.Depth = "exhaustive" }},
		{"threshold out of range", func(c *Config) { c.Analyzer.ConfidenceThreshold = 1.5 }},
		{"negative history", func(c *Config) { c.Memory.MaxHistorySize = -1 }},
		{"bad compression", func(c *Config) { c.Memory.Compression = "zip" }},
		{"bad objective", func(c *Config) { c.Prompts.DefaultObjective = "vibe" }},
		{"empty provider", func(c *Config) { c.LLM.Provider = "" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromPathCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should have been written")

	assert.Equal(t, "moderate", cfg.Analyzer.Depth)
	assert.Equal(t, 1000, cfg.Memory.MaxHistorySize)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromPathReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	seed := Default()
	seed.Server.Port = 9400
	seed.Prompts.DefaultObjective = "explain"
	require.NoError(t, seed.SaveToPath(path))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 9400, cfg.Server.Port)
	assert.Equal(t, "explain", cfg.Prompts.DefaultObjective)
}

func TestToAnalyzerConfigDefaults(t *testing.T) {
	out := AnalyzerConfig{}.ToAnalyzerConfig()
	def := analyzer.DefaultConfig()

	assert.Equal(t, def.Depth, out.Depth)
	assert.Equal(t, def.BatchSize, out.BatchSize)
	assert.NotEmpty(t, out.EnabledSources)
}

func TestToAnalyzerConfigOverrides(t *testing.T) {
	out := AnalyzerConfig{
		EnabledSources: []string{"screenshot"},
		Depth:          "deep",
		BatchSize:      8,
	}.ToAnalyzerConfig()

	assert.Equal(t, analyzer.DepthDeep, out.Depth)
	assert.Equal(t, 8, out.BatchSize)
	assert.Equal(t, []types.SignalSource{types.SourceScreenshot}, out.EnabledSources)
}

func TestDefaultSourcesReachAnalyzer(t *testing.T) {
	a := analyzer.New(Default().Analyzer.ToAnalyzerConfig())

	sc, err := a.Analyze(context.Background(), nil, analyzer.Signals{
		WindowTitle:       "main.go - myproject - vscode",
		ActiveApplication: "VSCode",
		SelectedText:      "func main() { run() }",
	})
	require.NoError(t, err)

	// The generated default config must not filter out any auxiliary signal.
	assert.Equal(t, types.EnvIDE, sc.Environment)
	assert.Greater(t, sc.Confidence, 0.3)
	assert.Equal(t, types.ActivityCoding, sc.Activity)
	assert.Equal(t, "VSCode", sc.App.ActiveApplication)
}

func TestToAnalyzerConfigNormalizesUnderscores(t *testing.T) {
	out := AnalyzerConfig{
		EnabledSources: []string{"window_title", "application_state", "user_input"},
	}.ToAnalyzerConfig()

	assert.Equal(t, []types.SignalSource{
		types.SourceWindowTitle,
		types.SourceApplicationState,
		types.SourceUserInput,
	}, out.EnabledSources)
}

func TestToMemoryConfig(t *testing.T) {
	out := MemoryConfig{
		MaxHistorySize: 50,
		Compression:    "summarize",
		DBPath:         "/tmp/glimpse-test.db",
	}.ToMemoryConfig()

	assert.Equal(t, 50, out.MaxHistorySize)
	assert.Equal(t, memory.CompressionSummarize, out.Compression)
	assert.Equal(t, "/tmp/glimpse-test.db", out.PersistPath)
	// Unset fields keep package defaults.
	assert.Equal(t, 3, out.PatternThreshold)
}

func TestToPromptsConfig(t *testing.T) {
	out := PromptsConfig{
		DefaultObjective: "debug",
		MaxTokens:        512,
		CacheEnabled:     true,
		CacheTTL:         time.Minute,
	}.ToPromptsConfig("gpt-4o")

	assert.Equal(t, types.ObjectiveDebug, out.DefaultObjective)
	assert.Equal(t, 512, out.MaxTokens)
	assert.Equal(t, "gpt-4o", out.TargetModel)
	assert.Equal(t, time.Minute, out.CacheTTL)
}

func TestToServerConfig(t *testing.T) {
	out := ServerConfig{Port: 9001}.ToServerConfig()
	assert.Equal(t, 9001, out.Port)
	assert.Equal(t, "127.0.0.1", out.Host)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".glimpse"), expandPath("~/.glimpse"))
	assert.Equal(t, "/etc/glimpse.yaml", expandPath("/etc/glimpse.yaml"))
}
