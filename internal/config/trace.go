package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Trace is a recorded snapshot sequence used by the replay harness:
// the same trace always yields the same transition sequence.
type Trace struct {
	Session string      `yaml:"session,omitempty"`
	Period  string      `yaml:"period,omitempty"` // e.g. "10ms"; informational
	Ticks   []traceTick `yaml:"ticks"`
}

type traceTick struct {
	Seq     uint64             `yaml:"seq"`
	Signals map[string]float64 `yaml:"signals"`
}

// LoadTrace reads a snapshot trace from path.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return ParseTrace(data)
}

// ParseTrace parses a snapshot trace from raw YAML.
func ParseTrace(data []byte) (*Trace, error) {
	var tr Trace
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parse trace: %w", err)
	}
	if len(tr.Ticks) == 0 {
		return nil, fmt.Errorf("trace has no ticks")
	}
	return &tr, nil
}

// Snapshots materializes the trace into domain snapshots. Sequence
// numbers default to the tick index when the document omits them.
func (tr *Trace) Snapshots() []*domain.Snapshot {
	base := time.Unix(0, 0)
	out := make([]*domain.Snapshot, 0, len(tr.Ticks))
	for i, tick := range tr.Ticks {
		seq := tick.Seq
		if seq == 0 {
			seq = uint64(i + 1)
		}
		out = append(out, &domain.Snapshot{
			Seq:     seq,
			Stamp:   base.Add(time.Duration(i) * 10 * time.Millisecond),
			Signals: tick.Signals,
		})
	}
	return out
}
