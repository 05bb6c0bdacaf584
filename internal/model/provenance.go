package model

import "time"

// ProvenanceRecord is an append-only audit entry: which source observed
// which value, when. One record is emitted per executed layer.
type ProvenanceRecord struct {
	EntityRef     string    `json:"entity_ref"`
	Field         string    `json:"field"`
	SourceID      string    `json:"source_id"`
	ObservedValue string    `json:"observed_value"`
	ObservedAt    time.Time `json:"observed_at"`
}
