package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/rowhash/internal/aggregate"
	"github.com/roach88/rowhash/internal/compiler"
	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
	"github.com/roach88/rowhash/internal/store"
)

// Result captures everything a scenario run produced.
type Result struct {
	// Events is the full audit trace, in sequence order.
	Events []store.Event

	// StepDigests holds the distinct digests each step reported; nil
	// for steps that were expected to fail.
	StepDigests [][]string
}

// Run executes a scenario against a fresh temp-file store. It returns
// an error on the first step or assertion that deviates from the
// scenario's expectations; a nil error means full conformance.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "rowhash-harness-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	defs, err := compiler.CompileSource(scenario.Name+".cue", []byte(scenario.Schema))
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	reg, err := schema.NewRegistry(defs)
	if err != nil {
		return nil, fmt.Errorf("building registry: %w", err)
	}

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.CreateTables(ctx, reg); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	agg := aggregate.New(st, reg,
		aggregate.WithTokenGenerator(aggregate.NewFixedGenerator(scenario.tokens()...)))

	result := &Result{StepDigests: make([][]string, len(scenario.Steps))}
	for i, step := range scenario.Steps {
		digests, err := runStep(ctx, agg, reg, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Insert, err)
		}
		result.StepDigests[i] = digests
	}

	for i, a := range scenario.Assertions {
		if err := checkAssertion(ctx, agg, a); err != nil {
			return nil, fmt.Errorf("assertion %d (%s): %w", i, a.Type, err)
		}
	}

	result.Events, err = st.ReadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	return result, nil
}

// runStep executes one insert and checks its expectation.
func runStep(ctx context.Context, agg *aggregate.Aggregator, reg *schema.Registry, step Step) ([]string, error) {
	t, err := reg.Table(step.Insert)
	if err != nil {
		return nil, err
	}
	rows := make([]row.Row, len(step.Rows))
	for i, raw := range step.Rows {
		r, err := store.DecodeRow(raw, t)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = r
	}

	res, err := agg.Insert(ctx, step.Insert, rows,
		aggregate.InsertOptions{ToMaster: step.ToMaster})

	if step.Expect != nil && step.Expect.Error != "" {
		if err == nil {
			return nil, fmt.Errorf("expected error %s, insert succeeded", step.Expect.Error)
		}
		var ae *aggregate.Error
		if !errors.As(err, &ae) || string(ae.Code) != step.Expect.Error {
			return nil, fmt.Errorf("expected error %s, got: %v", step.Expect.Error, err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if step.Expect != nil && len(step.Expect.Digests) > 0 {
		if !equalStrings(res.Digests, step.Expect.Digests) {
			return nil, fmt.Errorf("expected digests %v, got %v", step.Expect.Digests, res.Digests)
		}
	}
	return res.Digests, nil
}

func checkAssertion(ctx context.Context, agg *aggregate.Aggregator, a Assertion) error {
	switch a.Type {
	case "orphans":
		orphans, err := agg.HashesNotInParts(ctx, a.Master)
		if err != nil {
			return err
		}
		if len(orphans) != a.Count {
			return fmt.Errorf("expected %d orphaned digests, found %d", a.Count, len(orphans))
		}
	case "part_rows":
		t, err := agg.Registry().Table(a.Part)
		if err != nil {
			return err
		}
		n, err := agg.Store().Count(ctx, t, nil)
		if err != nil {
			return err
		}
		if n != a.Count {
			return fmt.Errorf("expected %d rows in %s, found %d", a.Count, a.Part, n)
		}
	case "owner":
		pr, err := agg.RestrictOnePartWithHash(ctx, a.Master, a.Digest)
		if err != nil {
			return err
		}
		if pr.Part != a.Part {
			return fmt.Errorf("digest %s owned by %s, expected %s", a.Digest, pr.Part, a.Part)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
