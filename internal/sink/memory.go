package sink

import (
	"sync"

	"github.com/ballotwatch/ballotwatch/internal/model"
)

// MemoryProvenance collects provenance records in memory. Safe for
// concurrent use; intended for batch runs and tests.
type MemoryProvenance struct {
	mu      sync.Mutex
	records []model.ProvenanceRecord
}

// NewMemoryProvenance creates an empty in-memory provenance sink.
func NewMemoryProvenance() *MemoryProvenance {
	return &MemoryProvenance{}
}

func (m *MemoryProvenance) Record(record model.ProvenanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

// Records returns a copy of everything recorded so far.
func (m *MemoryProvenance) Records() []model.ProvenanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ProvenanceRecord, len(m.records))
	copy(out, m.records)
	return out
}

// MemoryQueue collects review items in memory.
type MemoryQueue struct {
	mu    sync.Mutex
	items []model.ManualReviewItem
}

// NewMemoryQueue creates an empty in-memory review queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (m *MemoryQueue) Enqueue(item model.ManualReviewItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
}

// Items returns a copy of the queued review items.
func (m *MemoryQueue) Items() []model.ManualReviewItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ManualReviewItem, len(m.items))
	copy(out, m.items)
	return out
}
