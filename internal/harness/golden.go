package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/redstonesim/internal/ir"
	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/recorder"
)

// RunSnapshot captures the observable outcome of a scenario execution.
// Elapsed time is excluded so the canonical form is byte-stable.
type RunSnapshot struct {
	Scenario       string              `json:"scenario"`
	Terminated     string              `json:"terminated,omitempty"`
	TicksSimulated int                 `json:"ticks_simulated"`
	Changes        int                 `json:"changes"`
	Diffs          []recorder.Diff     `json:"diffs"`
	Warnings       []string            `json:"warnings,omitempty"`
	Error          *protocol.ErrorBody `json:"error,omitempty"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) RunSnapshot {
	snap := RunSnapshot{Scenario: name, Diffs: result.Diffs()}
	if result.Rejected != nil {
		body := protocol.NewErrorResponse(result.Rejected).Error
		snap.Error = &body
		return snap
	}
	run := result.Run
	snap.Terminated = run.Terminated.String()
	snap.TicksSimulated = run.Stats.TicksSimulated
	snap.Changes = run.Stats.Changes
	if len(run.Warnings) > 0 {
		snap.Warnings = warningCodes(run.Warnings)
	}
	return snap
}

// Snapshot renders a result as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	return ir.Canonicalize(NewSnapshot(name, result))
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snap, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snap)
	return nil
}
