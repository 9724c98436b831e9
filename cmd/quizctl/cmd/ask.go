package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dongjiahong/qa-system/internal/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Generate drill questions from a knowledge base",
	Long: `Generate one or more questions from the named knowledge base.

Examples:
  quizctl ask --kb golang                          # One medium question
  quizctl ask --kb golang --difficulty hard        # One hard question
  quizctl ask --kb golang --strategy diverse -n 3  # Three questions, varied sources
  quizctl ask --kb golang --json                   # Raw JSON output`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().String("difficulty", "medium", "question difficulty (easy|medium|hard)")
	askCmd.Flags().String("strategy", "random", "content selection strategy (random|diverse|recent|comprehensive)")
	askCmd.Flags().IntP("count", "n", 1, "number of questions to generate")
	askCmd.Flags().Bool("json", false, "output as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireKB(); err != nil {
		return err
	}
	difficulty, _ := cmd.Flags().GetString("difficulty")
	strategy, _ := cmd.Flags().GetString("strategy")
	count, _ := cmd.Flags().GetInt("count")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}

	client := newAPIClient(serverURL)
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	var questions []*domain.Question
	for i := 0; i < count; i++ {
		question, err := client.GenerateQuestion(ctx, kbName, difficulty, strategy)
		if err != nil {
			if len(questions) > 0 {
				fmt.Fprintf(os.Stderr, "warning: generated %d of %d questions: %v\n", len(questions), count, err)
				break
			}
			return err
		}
		questions = append(questions, question)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(questions)
	}

	w := cmd.OutOrStdout()
	for i, q := range questions {
		if count > 1 {
			fmt.Fprintf(w, "--- Question %d/%d ---\n", i+1, len(questions))
		}
		printQuestion(w, q)
	}
	return nil
}

func requireKB() error {
	if kbName == "" {
		return fmt.Errorf("--kb is required")
	}
	return nil
}
