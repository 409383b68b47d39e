// Package main is the entry point for the Glimpse daemon.
// Glimpse is a desktop assistant that watches the user's screen on demand,
// understands what they are working on, and answers questions grounded in
// that context.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/glimpse/internal/analyzer"
	"github.com/normanking/glimpse/internal/config"
	"github.com/normanking/glimpse/internal/engine"
	"github.com/normanking/glimpse/internal/llm"
	"github.com/normanking/glimpse/internal/logging"
	"github.com/normanking/glimpse/internal/memory"
	"github.com/normanking/glimpse/internal/prompts"
	"github.com/normanking/glimpse/internal/server"
	"github.com/normanking/glimpse/internal/synthesizer"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glimpse",
		Short: "Glimpse - screen-aware desktop assistant",
		Long: `Glimpse is a desktop assistant that sees your screen:
  • Classifies what you are working on from captures and signals
  • Remembers past sessions and mines behavioral patterns
  • Builds context-grounded prompts for the generation backend
  • Serves the desktop overlay over a loopback WebSocket

Start the daemon:  glimpse
Configuration:     glimpse config show`,
		RunE: runServe,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.glimpse/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Glimpse v%s\n", version)
		},
	})

	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logCfg := cfg.Logging.ToLoggingConfig()
	if verbose {
		logCfg.Level = "debug"
	}
	closeLog, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closeLog()

	log := logging.For("main")
	log.Info().Str("version", version).Msg("starting glimpse")

	mem, err := memory.New(cfg.Memory.ToMemoryConfig())
	if err != nil {
		return fmt.Errorf("failed to open context memory: %w", err)
	}

	var backend llm.Provider
	if cfg.LLM.APIKey != "" {
		backend, err = llm.NewOpenAI(cfg.LLM)
		if err != nil {
			return fmt.Errorf("failed to create backend: %w", err)
		}
	} else {
		log.Warn().Msg("no backend API key configured, serving prompts without answers")
	}

	eng := engine.New(
		engine.DefaultConfig(),
		analyzer.New(cfg.Analyzer.ToAnalyzerConfig()),
		mem,
		synthesizer.New(cfg.Synthesizer.ToSynthesizerConfig()),
		prompts.New(cfg.Prompts.ToPromptsConfig(cfg.LLM.Model)),
		backend,
	)
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server.ToServerConfig(), eng)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	log.Info().Msg("glimpse stopped")
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cfgPath != "" {
				return cfg.SaveToPath(cfgPath)
			}
			return cfg.Save()
		},
	})

	return cmd
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}
