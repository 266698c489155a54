package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// traceText renders the audit trace in a line-oriented textual form for
// golden comparison. One event per line:
//
//	<seq> <token> <op> <table> <digest> <row count>
//
// with "-" standing in for an empty digest.
func traceText(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range result.Events {
		digest := ev.Digest
		if digest == "" {
			digest = "-"
		}
		fmt.Fprintf(&b, "%d %s %s %s %s %d\n",
			ev.Seq, ev.Token, ev.Op, ev.Table, digest, ev.RowCount)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its audit trace
// against testdata/golden/<scenario.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution itself fails; a trace mismatch
// fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceText(scenario.Name, result))
	return nil
}
