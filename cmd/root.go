package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set by main.go via SetVersion.
var version = "dev"

// Global flags.
var (
	verbose bool
	logFile string
)

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "webcheck",
	Short:   "A batch URL checker",
	Version: version,
	Long: `webcheck requests a list of URLs and reports the status code, page
title, server banner, size and redirect target of each.

Use 'check' for CI/scripts, 'interactive' for a terminal form and
'history' to browse saved runs.

Examples:
  webcheck check https://example.com https://example.org
  webcheck check --file urls.txt --format=json
  webcheck interactive
  webcheck history`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Write logs to this file instead of stderr")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1) //nolint:revive // deep-exit is acceptable for CLI entry points
	}
}

// newLogger builds the process logger. --verbose selects the development
// config; otherwise only warnings and errors are written.
func newLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	if logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("setting up logger: %w", err)
	}
	return log, nil
}
