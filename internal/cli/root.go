// Package cli holds the operator commands: ingest judgments and ask questions
// from a terminal.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lawchat/backend/internal/app"
	"github.com/lawchat/backend/pkg/config"
	"github.com/lawchat/backend/pkg/logger"
)

type rootOptions struct {
	configPath string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "lawchat",
		Short: "Ask questions about NSW Supreme Court judgments",
		Long: `lawchat scrapes a configured list of judgments into a vector store and
answers natural-language questions over them with retrieval-augmented
generation.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))

	return cmd
}

// setup loads config, points logs at stderr unless a file is configured, and
// builds the application context.
func setup(ctx context.Context, opts *rootOptions) (*app.App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	output := cfg.Logging.OutputPath
	if output == "" || output == "stdout" {
		output = "stderr"
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, output); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}
