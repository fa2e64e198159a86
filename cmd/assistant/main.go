// Package main provides the CLI entry point for the Tableau assistant.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "assistant",
		Short: "AI data analyst for Tableau dashboards",
		Long: `assistant answers questions about Tableau worksheet data.

serve runs the HTTP backend that turns a question plus a worksheet snapshot
into a Gemini answer. ask is the client side: it connects to a Tableau host,
reads summary data, and sends questions to a running backend.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to assistant.toml (default: ./assistant.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Echo debug log lines as they are written")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newWorksheetsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
