package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/livecheck/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchJSON    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many statements from a file in parallel",
	Long: `Batch verifies statements concurrently:
- Read statements from the input file (one per line, # starts a comment)
- Duplicate statements are checked once
- Results are printed in input order

Example:
  livecheck batch statements.txt
  livecheck batch statements.txt --concurrency 8 --timeout 20m
  livecheck batch statements.txt --json > verdicts.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent checks (default: pipeline.batch_workers)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print one JSON result per line")
}

// batchLine is the JSON form of one batch result
type batchLine struct {
	Statement string  `json:"statement"`
	Verdict   string  `json:"verdict,omitempty"`
	Score     float64 `json:"truthScore,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	Sources   int     `json:"sources"`
	Error     string  `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Pipeline.BatchWorkers
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Checking statements from %s with %d workers...\n", file, workers)

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	failures := 0

	for _, r := range results {
		line := batchLine{Statement: r.Statement}
		if r.Error != nil {
			failures++
			line.Error = r.Error.Error()
		} else {
			line.Verdict = string(r.Result.SupportLabel)
			line.Score = r.Result.AggregateScore
			line.Summary = r.Result.VerdictSummary
			line.Sources = len(r.Result.Sources)
		}

		if batchJSON {
			_ = enc.Encode(line)
			continue
		}
		if line.Error != "" {
			fmt.Fprintf(out, "✗ %s: %s\n", line.Statement, line.Error)
			continue
		}
		fmt.Fprintf(out, "✓ %s\n  %s, truth score %.1f/100, %d sources\n", line.Statement, line.Verdict, line.Score, line.Sources)
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d\n", len(results), len(results)-failures, failures)
	return nil
}
