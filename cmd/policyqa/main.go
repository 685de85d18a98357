package main

// @title           PolicyQA API
// @version         1.0
// @description     Question answering over insurance policy documents.

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "policyqa",
	Short: "Answer questions about insurance policy documents",
	Long: `policyqa indexes a policy PDF into a vector store and answers
natural-language questions about it (grace periods, waiting periods,
coverage, maternity, room rent limits).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
