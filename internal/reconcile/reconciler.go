package reconcile

import (
	"fmt"
	"sort"

	"github.com/ballotwatch/ballotwatch/internal/model"
)

// PassThreshold is the fixed confidence a selected verdict needs for the
// reconciled result to count as valid. It is independent of the
// configurable escalation threshold.
const PassThreshold = 70

// Reconcile merges the executed layer verdicts into one authoritative
// result. It is pure and order-independent: the same multiset of
// verdicts always reconciles identically.
//
// The highest-confidence verdict wins, with ties broken toward the
// lower layer number so deterministic rules beat AI guesses. One strong
// corroborating source may override a weaker rule-based rejection, but
// dissenting evidence is never dropped: when the result is invalid the
// errors of every invalid verdict are kept, and any valid/invalid split
// is surfaced as a disagreement warning.
func Reconcile(verdicts []model.LayerVerdict) model.ReconciledVerdict {
	if len(verdicts) == 0 {
		return model.ReconciledVerdict{
			IsValid:     false,
			FinalErrors: []string{"no layer verdicts to reconcile"},
		}
	}

	selected := verdicts[0]
	for _, v := range verdicts[1:] {
		if v.Confidence > selected.Confidence ||
			(v.Confidence == selected.Confidence && v.Layer < selected.Layer) {
			selected = v
		}
	}

	isValid := selected.IsValid && selected.Confidence >= PassThreshold

	validCount := 0
	invalidCount := 0
	var errors []string
	var warnings []string

	for _, v := range verdicts {
		if v.IsValid {
			validCount++
		} else {
			invalidCount++
			if !isValid {
				errors = append(errors, v.Errors...)
			}
		}
		warnings = append(warnings, v.Warnings...)
	}

	disagreement := validCount > 0 && invalidCount > 0
	if disagreement {
		warnings = append(warnings, fmt.Sprintf("layers disagree: %d valid, %d invalid", validCount, invalidCount))
	}

	return model.ReconciledVerdict{
		IsValid:              isValid,
		FinalConfidence:      selected.Confidence,
		FinalErrors:          dedupeSorted(errors),
		FinalWarnings:        dedupeSorted(warnings),
		DisagreementDetected: disagreement,
	}
}

// dedupeSorted removes duplicates and sorts, so reconciliation does not
// depend on the order verdicts were collected in.
func dedupeSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	var unique []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			unique = append(unique, item)
		}
	}
	sort.Strings(unique)
	return unique
}
