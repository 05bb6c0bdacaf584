package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ballotwatch/ballotwatch/internal/model"
)

// JSONLWriter appends one JSON object per line to a file. Write failures
// never propagate to the validation run; the first error is retained and
// reported through Err so the CLI can surface it at exit.
type JSONLWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	err  error
}

// NewJSONLWriter opens (or creates) the file at path for appending.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &JSONLWriter{path: path, file: f}, nil
}

func (w *JSONLWriter) write(v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}

	line, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("encoding record for %s: %w", w.path, err)
		return
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		w.err = fmt.Errorf("appending to %s: %w", w.path, err)
	}
}

// Record appends one provenance record.
func (w *JSONLWriter) Record(record model.ProvenanceRecord) {
	w.write(record)
}

// Enqueue appends one review item.
func (w *JSONLWriter) Enqueue(item model.ManualReviewItem) {
	w.write(item)
}

// Err returns the first write failure, if any.
func (w *JSONLWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close flushes and closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
