package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

var askAnswersOnly bool

var askCmd = &cobra.Command{
	Use:   "ask <document-url> <question>...",
	Short: "Answer questions about a policy document",
	Long: `Indexes the document if needed, then prints one JSON result per
question with its answer, confidence and source pages.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askAnswersOnly, "answers-only", false, "print only the answer text, one per line")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	_, svc, err := bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Run.Run(ctx, driving.RunRequest{
		Documents: args[0],
		Questions: args[1:],
	})
	if err != nil {
		return err
	}

	return printResults(cmd, result.Results)
}

func printResults(cmd *cobra.Command, results []*domain.AnswerResult) error {
	for _, r := range results {
		if askAnswersOnly {
			fmt.Fprintln(cmd.OutOrStdout(), r.Answer)
			continue
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	return nil
}
