package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vantive/scansight/internal/cli"
	"github.com/vantive/scansight/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "scansight",
		Short: "Scansight CLI - semantic retrieval over scan corpora",
		Long: `Scansight CLI provides commands to search and manage a scan's document corpus.

Environment variables:
  SCANSIGHT_API_TOKEN   API token for authentication (required)
  SCANSIGHT_API_URL     API base URL (default: http://localhost:8080)`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Flags outrank env in the credential cascade; exporting them
			// here lets every subcommand resolve through the env path.
			if v, _ := cmd.Flags().GetString("api-token"); v != "" {
				os.Setenv("SCANSIGHT_API_TOKEN", v)
			}
			if v, _ := cmd.Flags().GetString("api-url"); v != "" {
				os.Setenv("SCANSIGHT_API_URL", v)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "API token for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.PullCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.BriefCmd())
	rootCmd.AddCommand(client.DocCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
