// Package main implements the onaykontrol CLI: it analyzes procurement
// approval PDFs for risk phrases and approval authority, manages the
// ruleset, and serves the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML configuration file
	configPath string
	// verbose switches logging to debug level on the console
	verbose bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Hata:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "onaykontrol",
	Short: "Procurement approval form analyzer",
	Long: `onaykontrol reads procurement approval PDFs, isolates the purchasing
decision section, flags commercial, ethical and legal risk phrases, extracts
the purchase summary and resolves the approval authority from the threshold
table.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on the console")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(serveCmd)
}
