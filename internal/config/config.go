package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/glimpse/internal/analyzer"
	"github.com/normanking/glimpse/internal/llm"
	"github.com/normanking/glimpse/internal/logging"
	"github.com/normanking/glimpse/internal/memory"
	"github.com/normanking/glimpse/internal/prompts"
	"github.com/normanking/glimpse/internal/server"
	"github.com/normanking/glimpse/internal/synthesizer"
	"github.com/normanking/glimpse/pkg/types"
)

// Config holds all application configuration for the Glimpse assistant.
// It is loaded from ~/.glimpse/config.yaml and can be overridden by
// environment variables.
type Config struct {
	Analyzer    AnalyzerConfig    `mapstructure:"analyzer" yaml:"analyzer"`
	Memory      MemoryConfig      `mapstructure:"memory" yaml:"memory"`
	Synthesizer SynthesizerConfig `mapstructure:"synthesizer" yaml:"synthesizer"`
	Prompts     PromptsConfig     `mapstructure:"prompts" yaml:"prompts"`
	LLM         llm.Config        `mapstructure:"llm" yaml:"llm"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// AnalyzerConfig contains configuration for the screen context analyzer.
type AnalyzerConfig struct {
	// EnabledSources lists the context signals the analyzer consumes
	// ("screenshot", "clipboard", "window_title", "application_state",
	// "user_input", "temporal").
	EnabledSources []string `mapstructure:"enabled_sources" yaml:"enabled_sources"`

	// Depth selects content extraction depth ("surface", "moderate", "deep").
	Depth string `mapstructure:"depth" yaml:"depth"`

	// RealTime marks the analyzer as serving interactive captures.
	RealTime bool `mapstructure:"real_time" yaml:"real_time"`

	// BatchSize bounds how many screenshot references one call accepts.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// ConfidenceThreshold triggers a warning log for weak classifications.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
}

// ToAnalyzerConfig converts AnalyzerConfig for use by the analyzer package.
func (c AnalyzerConfig) ToAnalyzerConfig() analyzer.Config {
	out := analyzer.DefaultConfig()
	if len(c.EnabledSources) > 0 {
		sources := make([]types.SignalSource, 0, len(c.EnabledSources))
		for _, s := range c.EnabledSources {
			// Accept underscore spellings from hand-edited config files.
			sources = append(sources, types.SignalSource(strings.ReplaceAll(s, "_", "-")))
		}
		out.EnabledSources = sources
	}
	if c.Depth != "" {
		out.Depth = analyzer.AnalysisDepth(c.Depth)
	}
	out.RealTime = c.RealTime
	if c.BatchSize > 0 {
		out.BatchSize = c.BatchSize
	}
	if c.ConfidenceThreshold > 0 {
		out.ConfidenceThreshold = c.ConfidenceThreshold
	}
	return out
}

// MemoryConfig contains configuration for the context memory store.
type MemoryConfig struct {
	// MaxHistorySize bounds the retained snapshot count.
	MaxHistorySize int `mapstructure:"max_history_size" yaml:"max_history_size"`

	// PatternThreshold is the minimum group size for a mined pattern.
	PatternThreshold int `mapstructure:"pattern_threshold" yaml:"pattern_threshold"`

	// RetentionPeriod is how long snapshots survive before cleanup (e.g. "168h").
	RetentionPeriod time.Duration `mapstructure:"retention_period" yaml:"retention_period"`

	// Compression selects the snapshot compression strategy
	// ("none", "summarize", "aggregate").
	Compression string `mapstructure:"compression" yaml:"compression"`

	// CleanupInterval is how often the background cleanup runs.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`

	// DBPath is the SQLite snapshot database; empty disables persistence.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// ToMemoryConfig converts MemoryConfig for use by the memory package.
func (c MemoryConfig) ToMemoryConfig() memory.Config {
	out := memory.DefaultConfig()
	if c.MaxHistorySize > 0 {
		out.MaxHistorySize = c.MaxHistorySize
	}
	if c.PatternThreshold > 0 {
		out.PatternThreshold = c.PatternThreshold
	}
	if c.RetentionPeriod > 0 {
		out.RetentionPeriod = c.RetentionPeriod
	}
	if c.Compression != "" {
		out.Compression = memory.CompressionStrategy(c.Compression)
	}
	if c.CleanupInterval > 0 {
		out.CleanupInterval = c.CleanupInterval
	}
	out.PersistPath = c.DBPath
	return out
}

// SynthesizerConfig contains configuration for the context synthesizer.
type SynthesizerConfig struct {
	// MaxHistory bounds how many ranked snapshots reach the output.
	MaxHistory int `mapstructure:"max_history" yaml:"max_history"`
}

// ToSynthesizerConfig converts SynthesizerConfig for the synthesizer package.
func (c SynthesizerConfig) ToSynthesizerConfig() synthesizer.Config {
	out := synthesizer.DefaultConfig()
	if c.MaxHistory > 0 {
		out.MaxHistory = c.MaxHistory
	}
	return out
}

// PromptsConfig contains configuration for the prompt engineer.
type PromptsConfig struct {
	// DefaultObjective applies when a request names none
	// ("solve", "explain", "debug", "review", "generate", "summarize").
	DefaultObjective string `mapstructure:"default_objective" yaml:"default_objective"`

	// DefaultStyle is the prompt register ("conversational", "technical", "concise").
	DefaultStyle string `mapstructure:"default_style" yaml:"default_style"`

	// DefaultLength buckets the target length ("short", "medium", "long").
	DefaultLength string `mapstructure:"default_length" yaml:"default_length"`

	// MaxTokens is the response budget passed to the backend.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`

	// ContextWindow is the target model's context size.
	ContextWindow int `mapstructure:"context_window" yaml:"context_window"`

	// OptimizationEnabled toggles the prompt optimization pipeline.
	OptimizationEnabled bool `mapstructure:"optimization_enabled" yaml:"optimization_enabled"`

	// ChainExecution reserves multi-step template chains.
	ChainExecution bool `mapstructure:"chain_execution" yaml:"chain_execution"`

	// Analytics toggles template usage tracking.
	Analytics bool `mapstructure:"analytics" yaml:"analytics"`

	// CacheEnabled keeps recent prompts for identical requests.
	CacheEnabled bool `mapstructure:"cache_enabled" yaml:"cache_enabled"`

	// CacheTTL is how long cached prompts stay valid.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// ToPromptsConfig converts PromptsConfig for use by the prompts package.
func (c PromptsConfig) ToPromptsConfig(targetModel string) prompts.Config {
	out := prompts.DefaultConfig()
	if c.DefaultObjective != "" {
		out.DefaultObjective = types.PromptObjective(c.DefaultObjective)
	}
	if c.DefaultStyle != "" {
		out.DefaultStyle = types.PromptStyle(c.DefaultStyle)
	}
	if c.DefaultLength != "" {
		out.DefaultLength = types.PromptLength(c.DefaultLength)
	}
	if c.MaxTokens > 0 {
		out.MaxTokens = c.MaxTokens
	}
	if c.ContextWindow > 0 {
		out.ContextWindow = c.ContextWindow
	}
	out.OptimizationEnabled = c.OptimizationEnabled
	out.ChainExecution = c.ChainExecution
	out.Analytics = c.Analytics
	out.CacheEnabled = c.CacheEnabled
	if c.CacheTTL > 0 {
		out.CacheTTL = c.CacheTTL
	}
	out.TargetModel = targetModel
	return out
}

// ServerConfig contains configuration for the overlay WebSocket server.
type ServerConfig struct {
	// Host is the bind address; keep loopback unless the overlay runs remotely.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the WebSocket listen port.
	Port int `mapstructure:"port" yaml:"port"`

	// ReadTimeout bounds how long a client read may block.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds each outbound message write.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// ToServerConfig converts ServerConfig for use by the server package.
func (c ServerConfig) ToServerConfig() server.Config {
	out := server.DefaultConfig()
	if c.Host != "" {
		out.Host = c.Host
	}
	if c.Port > 0 {
		out.Port = c.Port
	}
	if c.ReadTimeout > 0 {
		out.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		out.WriteTimeout = c.WriteTimeout
	}
	return out
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path to the log file
	File string `mapstructure:"file" yaml:"file"`
	// Console mirrors log output to stderr
	Console bool `mapstructure:"console" yaml:"console"`
}

// ToLoggingConfig converts LoggingConfig for use by the logging package.
func (c LoggingConfig) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:   c.Level,
		File:    c.File,
		Console: c.Console,
	}
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	glimpseDir := filepath.Join(homeDir, ".glimpse")

	return &Config{
		Analyzer: AnalyzerConfig{
			EnabledSources: []string{
				string(types.SourceScreenshot), string(types.SourceClipboard),
				string(types.SourceWindowTitle), string(types.SourceApplicationState),
				string(types.SourceUserInput), string(types.SourceTemporal),
			},
			Depth:               "moderate",
			RealTime:            true,
			BatchSize:           4,
			ConfidenceThreshold: 0.3,
		},
		Memory: MemoryConfig{
			MaxHistorySize:   1000,
			PatternThreshold: 3,
			RetentionPeriod:  7 * 24 * time.Hour,
			Compression:      "none",
			CleanupInterval:  time.Hour,
			DBPath:           filepath.Join(glimpseDir, "snapshots.db"),
		},
		Synthesizer: SynthesizerConfig{
			MaxHistory: 5,
		},
		Prompts: PromptsConfig{
			DefaultObjective:    "solve",
			DefaultStyle:        "technical",
			DefaultLength:       "medium",
			MaxTokens:           2048,
			ContextWindow:       8192,
			OptimizationEnabled: true,
			Analytics:           true,
			CacheEnabled:        true,
			CacheTTL:            5 * time.Minute,
		},
		LLM:    llm.DefaultConfig(),
		Server: DefaultServerConfig(),
		Logging: LoggingConfig{
			Level:   "info",
			File:    filepath.Join(glimpseDir, "logs", "glimpse.log"),
			Console: true,
		},
	}
}

// DefaultServerConfig returns sensible overlay server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8917,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Load reads configuration from the default location (~/.glimpse/config.yaml)
// and merges with environment variables. If no config file exists, it creates
// one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".glimpse", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with
// default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Enable environment variable overrides.
	// Example: GLIMPSE_LLM_API_KEY
	v.SetEnvPrefix("GLIMPSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Memory.DBPath = expandPath(cfg.Memory.DBPath)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return &cfg, nil
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".glimpse", "config.yaml")
	return c.SaveToPath(configPath)
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// GetDataDir returns the Glimpse data directory path (~/.glimpse).
func (c *Config) GetDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".glimpse")
}

// EnsureDirectories creates all directories Glimpse needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.GetDataDir(),
		filepath.Dir(c.Logging.File),
	}
	if c.Memory.DBPath != "" {
		dirs = append(dirs, filepath.Dir(c.Memory.DBPath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	validDepths := map[string]bool{"": true, "surface": true, "moderate": true, "deep": true}
	if !validDepths[c.Analyzer.Depth] {
		return fmt.Errorf("invalid analyzer depth '%s', must be one of: surface, moderate, deep", c.Analyzer.Depth)
	}
	if c.Analyzer.ConfidenceThreshold < 0 || c.Analyzer.ConfidenceThreshold > 1 {
		return fmt.Errorf("analyzer confidence_threshold must be between 0 and 1")
	}

	if c.Memory.MaxHistorySize < 0 {
		return fmt.Errorf("memory max_history_size cannot be negative")
	}
	validCompression := map[string]bool{"": true, "none": true, "summarize": true, "aggregate": true}
	if !validCompression[c.Memory.Compression] {
		return fmt.Errorf("invalid compression '%s', must be one of: none, summarize, aggregate", c.Memory.Compression)
	}

	validObjectives := map[string]bool{
		"": true, "solve": true, "explain": true, "debug": true,
		"review": true, "generate": true, "summarize": true,
	}
	if !validObjectives[c.Prompts.DefaultObjective] {
		return fmt.Errorf("invalid default_objective '%s'", c.Prompts.DefaultObjective)
	}

	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider cannot be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
