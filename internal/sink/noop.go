package sink

import "github.com/ballotwatch/ballotwatch/internal/model"

// Discard drops everything. Used when audit output is disabled.
type Discard struct{}

func (Discard) Record(model.ProvenanceRecord)  {}
func (Discard) Enqueue(model.ManualReviewItem) {}
