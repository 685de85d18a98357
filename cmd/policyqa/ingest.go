package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <document-url>",
	Short: "Index a policy document and print its document id",
	Long: `Fetches, chunks and embeds the document unless it is already indexed.
Local files can be given as file:///path/to/policy.pdf.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	_, svc, err := bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	documentID, err := svc.Ingestion.Ingest(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), documentID)
	return nil
}
