package escalate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ballotwatch/ballotwatch/internal/model"
)

// Issue types attached to review items.
const (
	IssueValidationFailed          = "validation_failed"
	IssueLowConfidence             = "low_confidence"
	IssueInsufficientCorroboration = "insufficient_corroboration"
)

// Priority bases per severity; the confidence deficit is added on top.
var priorityBase = map[model.Severity]int{
	model.SeverityCritical: 90,
	model.SeverityHigh:     70,
	model.SeverityMedium:   50,
	model.SeverityLow:      30,
}

// nowFunc is injectable for deterministic tests.
var nowFunc = time.Now

// newReviewID is injectable for deterministic tests.
var newReviewID = uuid.NewString

// BuildReviewItem converts a weak or contradicted reconciled verdict into
// a prioritized manual-review item. It returns nil when no escalation is
// needed: the verdict is valid, its confidence clears the configured
// threshold, and at least two layers executed or the claim passed.
//
// The item embeds a full snapshot of the claim and every layer verdict so
// a reviewer never has to re-run the pipeline.
func BuildReviewItem(claim model.Claim, reconciled model.ReconciledVerdict, verdicts []model.LayerVerdict, threshold int) *model.ManualReviewItem {
	issueType := classifyIssue(reconciled, len(verdicts), threshold)
	if issueType == "" {
		return nil
	}

	severity := classifySeverity(reconciled, verdicts)

	item := &model.ManualReviewItem{
		ReviewID:    newReviewID(),
		EntityRef:   claim.EntityRef(),
		Field:       claim.Field,
		IssueType:   issueType,
		Severity:    severity,
		Priority:    priority(severity, reconciled.FinalConfidence),
		Description: describe(claim, reconciled, issueType),
		Snapshot: model.ReviewSnapshot{
			Claim:      claim,
			Verdicts:   verdicts,
			Reconciled: reconciled,
		},
		Status:    model.StatusPending,
		CreatedAt: nowFunc().UTC(),
	}

	return item
}

// classifyIssue returns the issue type, or "" when no escalation applies.
func classifyIssue(reconciled model.ReconciledVerdict, executedLayers, threshold int) string {
	switch {
	case !reconciled.IsValid:
		if executedLayers < 2 {
			return IssueInsufficientCorroboration
		}
		return IssueValidationFailed
	case reconciled.FinalConfidence < threshold:
		return IssueLowConfidence
	default:
		return ""
	}
}

// classifySeverity applies the fixed severity ladder: any hard layer
// error is critical, more than two warnings is high, confidence under 50
// is medium, everything else is low.
func classifySeverity(reconciled model.ReconciledVerdict, verdicts []model.LayerVerdict) model.Severity {
	for _, v := range verdicts {
		if len(v.Errors) > 0 {
			return model.SeverityCritical
		}
	}
	if len(reconciled.FinalWarnings) > 2 {
		return model.SeverityHigh
	}
	if reconciled.FinalConfidence < 50 {
		return model.SeverityMedium
	}
	return model.SeverityLow
}

// priority maps severity plus confidence deficit onto 0-100.
func priority(severity model.Severity, confidence int) int {
	p := priorityBase[severity] + (100-confidence)/10
	if p > 100 {
		p = 100
	}
	return p
}

func describe(claim model.Claim, reconciled model.ReconciledVerdict, issueType string) string {
	switch issueType {
	case IssueLowConfidence:
		return fmt.Sprintf("%s %q for %s validated but confidence %d is below the review threshold",
			claim.Field, claim.Value, claim.EntityRef(), reconciled.FinalConfidence)
	case IssueInsufficientCorroboration:
		return fmt.Sprintf("%s %q for %s failed validation with no corroborating layer available",
			claim.Field, claim.Value, claim.EntityRef())
	default:
		return fmt.Sprintf("%s %q for %s failed validation at confidence %d",
			claim.Field, claim.Value, claim.EntityRef(), reconciled.FinalConfidence)
	}
}
