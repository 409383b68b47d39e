// Package logging configures zerolog output for Glimpse and hands out
// per-component child loggers. Console output goes to stderr; a file
// writer can be added for persistent troubleshooting.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls global log output.
type Config struct {
	// Level is the minimum level to log ("debug", "info", "warn", "error").
	Level string
	// File is an optional path for persistent logs (plain JSON lines).
	File string
	// Console enables the human-readable stderr writer. Disable when the
	// platform shell owns the terminal.
	Console bool
}

// DefaultConfig returns sensible defaults for interactive use.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Console: true,
	}
}

var (
	mu      sync.Mutex
	root    zerolog.Logger
	logFile *os.File
)

func init() {
	root = zerolog.New(consoleWriter()).With().Timestamp().Logger()
}

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
}

// Setup configures the global logger. It returns a close function that
// flushes and closes the log file, if one was opened.
func Setup(cfg Config) (func(), error) {
	mu.Lock()
	defer mu.Unlock()

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	writers := make([]io.Writer, 0, 2)
	if cfg.Console {
		writers = append(writers, consoleWriter())
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		writers = append(writers, f)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 1:
		out = writers[0]
	case 2:
		out = zerolog.MultiLevelWriter(writers...)
	}

	root = zerolog.New(out).Level(level).With().Timestamp().Logger()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if logFile != nil {
			logFile.Close()
			logFile = nil
		}
	}, nil
}

// For returns a child logger tagged with a component name.
func For(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root.With().Str("component", component).Logger()
}
