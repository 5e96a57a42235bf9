package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vantive/scansight/internal/cli"
	"github.com/vantive/scansight/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scansightd",
		Short: "Scansight daemon",
		Long:  "Scansight daemon for running the document retrieval API server and ingestion worker",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
