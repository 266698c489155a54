package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden
	// file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Schema is the CUE table schema source, inline.
	Schema string `yaml:"schema"`

	// Tokens are the audit tokens handed out in order, one per step.
	// When empty, "step-1".."step-N" are used.
	Tokens []string `yaml:"tokens,omitempty"`

	// Steps are executed in order against a fresh store.
	Steps []Step `yaml:"steps"`

	// Assertions run after all steps completed.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one insert call.
type Step struct {
	// Insert names the target table identity.
	Insert string `yaml:"insert"`

	// ToMaster runs the master/part protocol.
	ToMaster bool `yaml:"to_master,omitempty"`

	// Rows is the batch, attribute name to scalar.
	Rows []map[string]any `yaml:"rows"`

	// Expect validates the step outcome. A step without an expectation
	// must simply succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Digests are the distinct digests the step must report.
	Digests []string `yaml:"digests,omitempty"`

	// Error is the expected aggregate error code; the step must fail
	// with it.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of:
	//  - "orphans":   master's unowned digest count equals Count
	//  - "part_rows": part's row count equals Count
	//  - "owner":     Digest resolves to exactly the part named in Part
	Type string `yaml:"type"`

	// Master names the master table (orphans, owner).
	Master string `yaml:"master,omitempty"`

	// Part names a part identity (part_rows, owner).
	Part string `yaml:"part,omitempty"`

	// Digest is the digest to resolve (owner).
	Digest string `yaml:"digest,omitempty"`

	// Count is the expected count (orphans, part_rows).
	Count int `yaml:"count,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, st := range s.Steps {
		if st.Insert == "" {
			return fmt.Errorf("step %d: insert target is required", i)
		}
		if len(st.Rows) == 0 {
			return fmt.Errorf("step %d: rows are required", i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case "orphans":
			if a.Master == "" {
				return fmt.Errorf("assertion %d: orphans needs a master", i)
			}
		case "part_rows":
			if a.Part == "" {
				return fmt.Errorf("assertion %d: part_rows needs a part", i)
			}
		case "owner":
			if a.Master == "" || a.Digest == "" || a.Part == "" {
				return fmt.Errorf("assertion %d: owner needs master, digest and part", i)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}

// tokens returns the audit token sequence for the scenario's steps.
func (s *Scenario) tokens() []string {
	if len(s.Tokens) > 0 {
		return s.Tokens
	}
	out := make([]string, len(s.Steps))
	for i := range s.Steps {
		out[i] = fmt.Sprintf("step-%d", i+1)
	}
	return out
}
