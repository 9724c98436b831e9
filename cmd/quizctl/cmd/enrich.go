package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Queue metadata enrichment for a knowledge base",
	Long: `Enqueue an enrichment job for every fragment in the knowledge base.
The background worker annotates each fragment with existing Q/A pairs and
key concepts, which the comprehensive selection strategy consumes.

Examples:
  quizctl enrich --kb golang`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if err := requireKB(); err != nil {
		return err
	}

	client := newAPIClient(serverURL)
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	enqueued, err := client.Enrich(ctx, kbName)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d enrichment job(s) for %q.\n", enqueued, kbName)
	return nil
}
