package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base and drill statistics",
	Long: `Display indexed-content counts and aggregated drill outcomes for a
knowledge base.

Examples:
  quizctl stats --kb golang
  quizctl stats --kb golang --json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireKB(); err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	client := newAPIClient(serverURL)
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	stats, err := client.Stats(ctx, kbName)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Knowledge base: %s\n", stats.KBName)
	fmt.Fprintf(w, "  fragments:     %d\n", stats.Content.FragmentCount)
	fmt.Fprintf(w, "  sources:       %d\n", stats.Content.SourceCount)
	fmt.Fprintf(w, "  attempts:      %d\n", stats.History.TotalRecords)
	fmt.Fprintf(w, "  correct:       %d\n", stats.History.CorrectCount)
	if stats.History.TotalRecords > 0 {
		rate := float64(stats.History.CorrectCount) / float64(stats.History.TotalRecords) * 100
		fmt.Fprintf(w, "  accuracy:      %.1f%%\n", rate)
	}
	fmt.Fprintf(w, "  average score: %.1f\n", stats.History.AverageScore)
	return nil
}
