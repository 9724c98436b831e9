package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent drill attempts",
	Long: `List the most recent drill attempts for a knowledge base, newest first.

Examples:
  quizctl history --kb golang
  quizctl history --kb golang --limit 50
  quizctl history --kb golang --json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "l", 20, "maximum number of records")
	historyCmd.Flags().Bool("json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := requireKB(); err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	client := newAPIClient(serverURL)
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	records, err := client.History(ctx, kbName, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(w, "No attempts recorded yet.")
		return nil
	}
	for _, r := range records {
		verdict := "✗"
		if r.Evaluation.IsCorrect {
			verdict = "✓"
		}
		fmt.Fprintf(w, "%s  %s %.1f  %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04"),
			verdict, r.Evaluation.Score, r.Question.Content)
	}
	return nil
}
