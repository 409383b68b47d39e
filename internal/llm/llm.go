// Package llm provides the generation backend for engineered prompts,
// including multimodal requests that carry screen captures.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrBackend wraps any failure returned by the generation backend. The
// underlying provider error is opaque to callers.
var ErrBackend = errors.New("llm backend error")

// Provider is the generation backend the engine dispatches prompts to.
type Provider interface {
	// Generate sends an engineered prompt and returns the completion.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider identifier.
	Name() string

	// Available reports whether the provider is configured.
	Available() bool
}

// GenerateRequest is one completion request. Images are raw capture
// bytes; providers encode them as the wire format requires.
type GenerateRequest struct {
	// SystemPrompt sets the assistant's behavior.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Prompt is the engineered prompt text.
	Prompt string `json:"prompt"`

	// Images holds raw PNG/JPEG screen captures to attach.
	Images [][]byte `json:"-"`

	// MaxTokens limits response length; 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 - 1.0).
	Temperature float64 `json:"temperature,omitempty"`
}

// GenerateResponse is the backend's completion.
type GenerateResponse struct {
	Content          string        `json:"content"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	Duration         time.Duration `json:"duration"`
	FinishReason     string        `json:"finish_reason,omitempty"`
}

// Config configures a generation backend.
type Config struct {
	// Provider identifies the backend ("openai").
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Endpoint overrides the API base URL; empty uses the default.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// APIKey authenticates with the backend.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// Model is the model to request.
	Model string `mapstructure:"model" yaml:"model"`

	// MaxTokens is the default response budget.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`

	// Temperature is the default sampling temperature.
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// Timeout bounds each API call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns sensible backend defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-4o",
		MaxTokens:   2048,
		Temperature: 0.4,
		Timeout:     60 * time.Second,
	}
}
