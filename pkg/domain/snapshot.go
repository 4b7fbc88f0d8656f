package domain

import "time"

// Snapshot is the immutable bundle of estimator outputs consumed by
// one tick. The estimation layer creates a fresh one per tick; the
// supervisor only reads it and retains no reference past the tick
// (persistence windows copy what they need into the evaluator's ring).
type Snapshot struct {
	// Seq is the producer's monotonically increasing tick sequence.
	Seq uint64 `json:"seq" yaml:"seq"`

	Stamp time.Time `json:"stamp" yaml:"stamp"`

	// Signals maps estimator handles to scalar outputs. Vector-valued
	// estimators publish one entry per component.
	Signals map[string]float64 `json:"signals" yaml:"signals"`
}

// Lookup returns the named signal, reporting absence explicitly so a
// missing estimator output degrades to a guard evaluation error rather
// than a silent zero.
func (s *Snapshot) Lookup(signal string) (float64, bool) {
	if s == nil || s.Signals == nil {
		return 0, false
	}
	v, ok := s.Signals[signal]
	return v, ok
}
