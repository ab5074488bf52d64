package metricssink

import (
	"sync"

	"deepresearch/internal/searchengine"
)

// MemorySink collects every recorded row for test assertions.
type MemorySink struct {
	mu   sync.Mutex
	Rows []searchengine.MetricsRow
}

// NewMemorySink builds an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(row searchengine.MetricsRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows = append(s.Rows, row)
}

// Snapshot returns a copy of the rows recorded so far.
func (s *MemorySink) Snapshot() []searchengine.MetricsRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]searchengine.MetricsRow, len(s.Rows))
	copy(out, s.Rows)
	return out
}
