package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lawchat/backend/internal/query"
	"github.com/lawchat/backend/pkg/logger"
)

func newQueryCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query [text...]",
		Short: "Answer a question over the stored judgments",
		Long: `Answers a question with the FLARE generate-then-verify loop. All arguments
are joined with spaces; with none, the configured default question is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			text := queryText(args, a.Config.Query.DefaultQuery)

			resp, err := a.Engine.ProcessQuery(cmd.Context(), query.Request{
				Text:    text,
				Surface: query.SurfaceCLI,
			})
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), text, resp.Answer)
			return nil
		},
	}
}

func queryText(args []string, fallback string) string {
	if len(args) == 0 {
		return fallback
	}
	return strings.Join(args, " ")
}

func printResult(w io.Writer, text, answer string) {
	fmt.Fprintf(w, "QUERY: %s\n\n\n", text)
	fmt.Fprintf(w, "FLARE RESULT:\n    %s\n\n\n", answer)
}
