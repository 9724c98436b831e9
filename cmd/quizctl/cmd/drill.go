package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dongjiahong/qa-system/internal/domain"
)

var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Run an interactive drill session",
	Long: `Run an interactive question-and-answer loop: each round generates a
question, reads your answer from stdin, and prints the graded result.

Type "quit" (or press Ctrl-D) to end the session.

Examples:
  quizctl drill --kb golang
  quizctl drill --kb golang --difficulty hard --strategy comprehensive`,
	RunE: runDrill,
}

func init() {
	rootCmd.AddCommand(drillCmd)

	drillCmd.Flags().String("difficulty", "medium", "question difficulty (easy|medium|hard)")
	drillCmd.Flags().String("strategy", "diverse", "content selection strategy")
	drillCmd.Flags().IntP("rounds", "r", 0, "number of rounds (0 = until quit)")
}

func runDrill(cmd *cobra.Command, args []string) error {
	if err := requireKB(); err != nil {
		return err
	}
	difficulty, _ := cmd.Flags().GetString("difficulty")
	strategy, _ := cmd.Flags().GetString("strategy")
	rounds, _ := cmd.Flags().GetInt("rounds")

	client := newAPIClient(serverURL)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	w := cmd.OutOrStdout()

	var answered, correct int
	var totalScore float64

	for round := 1; rounds == 0 || round <= rounds; round++ {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		question, err := client.GenerateQuestion(ctx, kbName, difficulty, strategy)
		cancel()
		if err != nil {
			if answered > 0 {
				fmt.Fprintf(os.Stderr, "warning: could not generate the next question: %v\n", err)
				break
			}
			return err
		}

		fmt.Fprintf(w, "\n=== Round %d ===\n", round)
		printQuestion(w, question)
		fmt.Fprint(w, "Your answer> ")

		answer, ok := readAnswer(scanner)
		if !ok || strings.EqualFold(strings.TrimSpace(answer), "quit") {
			break
		}

		ctx, cancel = context.WithTimeout(cmd.Context(), 10*time.Minute)
		record, err := client.SubmitAttempt(ctx, kbName, question, answer)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to grade answer: %w", err)
		}

		printEvaluation(w, &record.Evaluation)
		answered++
		totalScore += record.Evaluation.Score
		if record.Evaluation.IsCorrect {
			correct++
		}
	}

	if answered > 0 {
		fmt.Fprintf(w, "\nSession: %d answered, %d correct, average score %.1f\n",
			answered, correct, totalScore/float64(answered))
	}
	return nil
}

func readAnswer(scanner *bufio.Scanner) (string, bool) {
	if !scanner.Scan() {
		return "", false
	}
	return scanner.Text(), true
}

func printQuestion(w io.Writer, q *domain.Question) {
	fmt.Fprintf(w, "[%s / %s] %s\n", q.KBName, q.Difficulty, q.Content)
	if q.BackgroundInfo != "" {
		fmt.Fprintf(w, "Background: %s\n", q.BackgroundInfo)
	}
}

func printEvaluation(w io.Writer, e *domain.EvaluationResult) {
	verdict := "INCORRECT"
	if e.IsCorrect {
		verdict = "CORRECT"
	}
	if e.Status == domain.EvaluationError {
		verdict = "UNGRADED"
	}
	fmt.Fprintf(w, "\n%s (score %.1f/10)\n", verdict, e.Score)
	if e.Feedback != "" {
		fmt.Fprintf(w, "Feedback: %s\n", e.Feedback)
	}
	if e.ReferenceAnswer != "" {
		fmt.Fprintf(w, "Reference answer: %s\n", e.ReferenceAnswer)
	}
	for _, p := range e.MissingPoints {
		fmt.Fprintf(w, "  missing: %s\n", p)
	}
	for _, s := range e.Strengths {
		fmt.Fprintf(w, "  strength: %s\n", s)
	}
}
