package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ballotwatch/ballotwatch/internal/engine"
	"github.com/ballotwatch/ballotwatch/internal/model"
)

var (
	entityType   string
	entityID     string
	field        string
	value        string
	jurisdiction string
	skipAI       bool
	skipOfficial bool
	forceFull    bool
	threshold    int
	checkTimeout time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a single claimed election fact",
	Long: `Check runs one claim through the full validation pipeline and prints
the result as JSON.

The exit code is 0 whether or not the claim validates; inspect
"is_valid" and "requires_manual_review" in the output.

Example:
  ballotwatch check --entity-id 2026-la-gov --field election_date \
      --value 2026-10-10 --jurisdiction LA
  ballotwatch check --entity-id 2026-la-gov --field election_date \
      --value 2026-10-13 --jurisdiction LA --skip-ai`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&entityType, "entity-type", "election", "entity type the claim is about")
	checkCmd.Flags().StringVar(&entityID, "entity-id", "", "entity identifier (required)")
	checkCmd.Flags().StringVar(&field, "field", "", "claimed field, e.g. election_date (required)")
	checkCmd.Flags().StringVar(&value, "value", "", "claimed value (required)")
	checkCmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "state/territory code, e.g. LA")
	checkCmd.Flags().BoolVar(&skipAI, "skip-ai", false, "skip AI corroboration")
	checkCmd.Flags().BoolVar(&skipOfficial, "skip-official", false, "skip official-source corroboration")
	checkCmd.Flags().BoolVar(&forceFull, "force-full", false, "run all layers even when rules alone suffice")
	checkCmd.Flags().IntVar(&threshold, "threshold", 0, "override the escalation confidence threshold (1-100)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall validation timeout")

	_ = checkCmd.MarkFlagRequired("entity-id")
	_ = checkCmd.MarkFlagRequired("field")
	_ = checkCmd.MarkFlagRequired("value")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	claim := model.Claim{
		EntityType:   entityType,
		EntityID:     entityID,
		Field:        field,
		Value:        value,
		Jurisdiction: jurisdiction,
	}

	result := orchestrator.Validate(ctx, claim, engine.Options{
		SkipAI:              skipAI,
		SkipOfficial:        skipOfficial,
		ForceFull:           forceFull,
		ConfidenceThreshold: threshold,
	})

	if verbose {
		fmt.Fprintf(os.Stderr, "Validated %s.%s in %d layer(s): valid=%v confidence=%d\n",
			claim.EntityRef(), claim.Field, len(result.LayersExecuted), result.IsValid, result.FinalConfidence)
		if result.RequiresManualReview {
			fmt.Fprintf(os.Stderr, "Escalated to manual review (%s, priority %d)\n",
				result.ManualReviewItem.Severity, result.ManualReviewItem.Priority)
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
