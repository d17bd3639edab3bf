// Package main provides the coldmail CLI: generate cold emails for job postings
// through the email generation service, or serve the local console.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonathan/coldmail/internal/config"
	"github.com/jonathan/coldmail/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "coldmail",
	Short: "Cold email generator client",
	Long:  "coldmail sends a job posting URL or job description to the email generation service and shows the personalized cold emails it returns.",
	PersistentPreRunE: loadRuntime,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if appLog != nil {
			_ = appLog.Sync()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	endpoint   string
	timeout    time.Duration
	logLevel   string
	logFormat  string

	cfg    *config.Config
	appLog *zap.Logger
)

// errGenerationFailed is returned after the failure has already been printed.
var errGenerationFailed = errors.New("generation failed")

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config file (default: ./coldmail.yaml if present)")
	flags.StringVar(&endpoint, "endpoint", "", "Base URL of the email generation service")
	flags.DurationVar(&timeout, "timeout", 0, "Request timeout (e.g. 30s)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

// loadRuntime loads config, applies flag overrides and builds the logger.
func loadRuntime(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		loaded.Endpoint = endpoint
	}
	if flags.Changed("timeout") {
		loaded.Timeout = timeout
	}
	if flags.Changed("log-level") {
		loaded.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		loaded.Log.Format = logFormat
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := logger.New(loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return err
	}

	cfg, appLog = loaded, l
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errGenerationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
