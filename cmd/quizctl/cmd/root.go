// Package cmd contains all CLI commands for quizctl
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	serverURL string
	kbName    string
	version   = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quizctl",
	Short: "Knowledge-base drill CLI",
	Long: `quizctl drives a drill session against the quiz server: it asks for
generated questions, submits answers for grading, and inspects history.

Example usage:
  quizctl ask --kb golang --difficulty hard     # Generate one question
  quizctl drill --kb golang                     # Interactive drill session
  quizctl history --kb golang --limit 10        # Recent attempts
  quizctl stats --kb golang                     # Aggregated outcomes
  quizctl enrich --kb golang                    # Queue fragment enrichment`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "quiz server base URL")
	rootCmd.PersistentFlags().StringVar(&kbName, "kb", "", "knowledge base name (required)")
}
