package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"biasmeter/internal/app"
	"biasmeter/internal/platform/config"
	"biasmeter/internal/platform/logger"
)

var (
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "biasctl",
	Short: "Estimate the political bias of text",
	Long: `biasctl scores text with the weighted lexicon or an external model backend
and prints the left/right split as JSON. Configuration is read from the same
environment variables as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides BIAS_CONFIG_FILE)")
}

// buildComponents is replaced in tests.
var buildComponents = func(ctx context.Context, cfg config.Config, log *slog.Logger) (*app.Components, error) {
	return app.Build(ctx, cfg, log, nil)
}

func loadComponents(cmd *cobra.Command) (*app.Components, error) {
	if configFile != "" {
		if err := os.Setenv("BIAS_CONFIG_FILE", configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return buildComponents(cmd.Context(), cfg, cliLogger(cmd.ErrOrStderr()))
}

func cliLogger(w io.Writer) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return logger.NewWithWriter(w, "debug", "text")
}
