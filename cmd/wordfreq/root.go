package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "wordfreq",
	Short:         "Parallel word-frequency counter",
	Long:          "Counts words across a pool of workers, collapsing synonyms and skipping noise words, and ranks the result.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (defaults plus WF_* environment when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(synonymsCmd)
	rootCmd.AddCommand(benchCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// setupCLILogging sends logs to stderr so stdout carries only results.
func setupCLILogging(level string) {
	logger.SetupWriter(os.Stderr, level, "text")
}

// exitCode distinguishes bad input from runtime failures for scripts.
func exitCode(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrFormat):
		return 2
	case errors.Is(err, apperrors.ErrNotFound):
		return 3
	default:
		return 1
	}
}
