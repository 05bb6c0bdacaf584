package model

import "strings"

// Claim represents a single fact awaiting validation: a claimed value for
// one field of one entity (e.g., "election 2026-la-gov occurs on 2026-10-10").
// Claims are constructed fresh per validation run and never mutated.
type Claim struct {
	EntityType   string `json:"entity_type"`            // e.g. "election", "candidate"
	EntityID     string `json:"entity_id"`              // Caller-assigned identifier
	Field        string `json:"field"`                  // Field being claimed (e.g. "election_date")
	Value        string `json:"value"`                  // The claimed value, as provided upstream
	Jurisdiction string `json:"jurisdiction,omitempty"` // State/territory code (e.g. "LA")
}

// EntityRef returns the canonical entity reference used in provenance
// and review records.
func (c Claim) EntityRef() string {
	return c.EntityType + ":" + c.EntityID
}

// IsDateField reports whether the claimed field carries a date value.
// Date fields get calendar constraints; everything else is treated as
// free text.
func (c Claim) IsDateField() bool {
	return c.Field == "date" || strings.HasSuffix(c.Field, "_date")
}
