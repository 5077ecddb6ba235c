package dataflow

import (
	"sync"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// Sink is the thread-safe result collector an Engine hands query
// execution: operators never return a shared slice directly, they Drain
// into one of these as the final result-collection step, following the
// same reusable, reset-rather-than-reallocated pooling pattern as
// annotations.Collector.
type Sink struct {
	mu   sync.Mutex
	rows []datalog.Tuple
}

// NewSink returns an empty Sink.
func NewSink() *Sink { return &Sink{} }

// Probe reports the number of rows currently held, without draining.
func (s *Sink) Probe() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Fill copies every present row of col into the sink, applying the
// set-vs-bag semantics of its semiring: under Boolean a row appears
// once regardless of its saturating weight; under every other semiring
// it appears once per unit of positive weight, which is what "results"
// means for a Counting-derived relation.
func (s *Sink) Fill(col *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		n := weightOf(diff)
		if col.Semiring() == semiring.Boolean {
			n = 1
		}
		for i := int64(0); i < n; i++ {
			s.rows = append(s.rows, row)
		}
	})
}

// Drain returns every collected row and clears the sink.
func (s *Sink) Drain() []datalog.Tuple {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.rows
	s.rows = nil
	return out
}

// Clear discards any collected rows without returning them.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
}
