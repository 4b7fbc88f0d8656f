// Package config parses the graph documents exchanged with the
// planning collaborator. A document is plain YAML; guard blocks are
// decoded through mapstructure with weak typing because planner
// exports frequently stringify numbers.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/kinetral/sequitur/pkg/domain"
)

// Document is the on-disk form of a task graph.
type Document struct {
	Version   int            `yaml:"version"`
	Name      string         `yaml:"name"`
	SafeState string         `yaml:"safe_state,omitempty"`
	Sections  []stateSection `yaml:"states"`
}

type stateSection struct {
	ID          string                 `yaml:"id"`
	Law         *domain.ControlLawSpec `yaml:"law"`
	Estimators  []string               `yaml:"estimators,omitempty"`
	Terminal    bool                   `yaml:"terminal,omitempty"`
	Metadata    map[string]string      `yaml:"metadata,omitempty"`
	Transitions []transitionSection    `yaml:"transitions,omitempty"`
}

type transitionSection struct {
	To           string         `yaml:"to"`
	Guard        map[string]any `yaml:"guard,omitempty"`
	CommitAction string         `yaml:"commit_action,omitempty"`
}

// Load reads and parses a graph document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph document: %w", err)
	}
	return Parse(data)
}

// Parse parses a graph document from raw YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph document: %w", err)
	}
	if doc.Version != 1 {
		return nil, fmt.Errorf("unsupported graph document version %d", doc.Version)
	}
	return &doc, nil
}

// States converts the document into domain states ready for graph
// construction. Guard blocks are decoded here; structural validation
// (dangling edges, entry states) stays with the graph model.
func (d *Document) States() ([]domain.State, error) {
	out := make([]domain.State, 0, len(d.Sections))
	for _, sec := range d.Sections {
		s := domain.State{
			ID:         sec.ID,
			Law:        sec.Law,
			Estimators: sec.Estimators,
			Terminal:   sec.Terminal,
			Metadata:   sec.Metadata,
		}
		for _, ts := range sec.Transitions {
			guard, err := decodeGuard(ts.Guard)
			if err != nil {
				return nil, fmt.Errorf("state %q, transition to %q: %w", sec.ID, ts.To, err)
			}
			s.Transitions = append(s.Transitions, domain.Transition{
				From:         sec.ID,
				To:           ts.To,
				Guard:        guard,
				CommitAction: ts.CommitAction,
			})
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeGuard maps a loose guard block into a GuardSpec. Weak typing
// tolerates planner exports that quote numerics ("threshold: '5'").
func decodeGuard(raw map[string]any) (domain.GuardSpec, error) {
	if raw == nil {
		return domain.GuardSpec{Op: domain.OpAlways}, nil
	}

	var spec domain.GuardSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "yaml",
	})
	if err != nil {
		return spec, err
	}
	if err := dec.Decode(raw); err != nil {
		return spec, fmt.Errorf("decode guard: %w", err)
	}
	return spec, nil
}
