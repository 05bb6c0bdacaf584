package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ballotwatch/ballotwatch/internal/engine"
	"github.com/ballotwatch/ballotwatch/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchOutput  string
)

var batchCmd = &cobra.Command{
	Use:   "batch <claims.jsonl>",
	Short: "Validate many claims from a JSONL file in parallel",
	Long: `Batch reads one JSON claim per line (blank lines and # comments are
skipped) and validates them concurrently:

  {"entity_type": "election", "entity_id": "2026-la-gov",
   "field": "election_date", "value": "2026-10-10", "jurisdiction": "LA"}

Results are written as JSONL, one validation result per claim.

Example:
  ballotwatch batch claims.jsonl
  ballotwatch batch claims.jsonl --concurrency 8 --output results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().StringVar(&batchOutput, "output", "results.jsonl", "output path for validation results (\"-\" for stdout)")
	batchCmd.Flags().BoolVar(&skipAI, "skip-ai", false, "skip AI corroboration")
	batchCmd.Flags().BoolVar(&skipOfficial, "skip-official", false, "skip official-source corroboration")
	batchCmd.Flags().IntVar(&threshold, "threshold", 0, "override the escalation confidence threshold (1-100)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}

	orchestrator, sinks, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sinks.close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit output incomplete: %v\n", closeErr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	processor := worker.NewBatchProcessor(orchestrator, workers, engine.Options{
		SkipAI:              skipAI,
		SkipOfficial:        skipOfficial,
		ConfidenceThreshold: threshold,
	})

	fmt.Fprintf(os.Stderr, "Reading claims from %s\n", file)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Validated %d claims with %d workers\n", len(results), workers)

	out := os.Stdout
	if batchOutput != "-" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	encoder := json.NewEncoder(out)
	valid, escalated := 0, 0
	for _, res := range results {
		if err := encoder.Encode(res.Result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		if res.Result.IsValid {
			valid++
		}
		if res.Result.RequiresManualReview {
			escalated++
		}
	}

	fmt.Fprintf(os.Stderr, "\n  Total:      %d\n  Valid:      %d\n  Invalid:    %d\n  For review: %d\n",
		len(results), valid, len(results)-valid, escalated)
	if batchOutput != "-" {
		fmt.Fprintf(os.Stderr, "  Results:    %s\n", batchOutput)
	}

	return nil
}
