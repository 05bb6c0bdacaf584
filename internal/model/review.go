package model

import "time"

// Severity classifies how urgent a review item is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ReviewStatus tracks a review item through the manual-review workflow.
// The validation engine only ever creates items in StatusPending; every
// later transition is owned by the review subsystem.
type ReviewStatus string

const (
	StatusPending   ReviewStatus = "pending"
	StatusInReview  ReviewStatus = "in_review"
	StatusResolved  ReviewStatus = "resolved"
	StatusDismissed ReviewStatus = "dismissed"
)

// ReviewSnapshot freezes everything a reviewer needs so the pipeline
// never has to be re-run: the claim plus every layer verdict and the
// reconciled result.
type ReviewSnapshot struct {
	Claim      Claim             `json:"claim"`
	Verdicts   []LayerVerdict    `json:"verdicts"`
	Reconciled ReconciledVerdict `json:"reconciled"`
}

// ManualReviewItem is a prioritized entry in the human-review queue,
// created only when validation escalates.
type ManualReviewItem struct {
	ReviewID    string         `json:"review_id"`
	EntityRef   string         `json:"entity_ref"`
	Field       string         `json:"field"`
	IssueType   string         `json:"issue_type"`
	Severity    Severity       `json:"severity"`
	Priority    int            `json:"priority"` // 0-100, higher reviewed first
	Description string         `json:"description"`
	Snapshot    ReviewSnapshot `json:"snapshot"`
	Status      ReviewStatus   `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}
