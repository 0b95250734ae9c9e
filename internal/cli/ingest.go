package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lawchat/backend/pkg/logger"
)

func newIngestCmd(root *rootOptions) *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scrape, chunk, embed and store the configured judgments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			pipeline, err := a.Pipeline()
			if err != nil {
				return err
			}

			if len(sources) == 0 {
				sources = a.Config.Ingestion.Sources
			}

			result, err := pipeline.Run(cmd.Context(), sources)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d documents into %d chunks (%d records) in %s\n",
				result.Documents, result.Chunks, result.Records, result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "judgment URL to ingest instead of the configured list (repeatable)")

	return cmd
}
