package harness

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/simerr"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	files, err := FindScenarios(filepath.Join("testdata", "scenarios"), "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			s, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_RejectedRequest(t *testing.T) {
	result, err := Run(loadTestScenario(t, "duplicate_block"))
	require.NoError(t, err)

	assert.True(t, result.Pass)
	require.NotNil(t, result.Rejected)
	assert.True(t, simerr.IsValidation(result.Rejected))
	assert.Nil(t, result.Run)
	assert.Empty(t, result.Diffs())
}

func TestRun_UnexpectedRejection(t *testing.T) {
	s := loadTestScenario(t, "duplicate_block")
	s.Expect = &ExpectClause{Terminated: "settled"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "request rejected")
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := loadTestScenario(t, "duplicate_block")
	s.Expect = &ExpectClause{Error: "PARSE_ERROR"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error PARSE_ERROR")
}

func TestRun_ExpectedErrorButAccepted(t *testing.T) {
	s := loadTestScenario(t, "lever_dust_lamp")
	s.Expect = &ExpectClause{Error: "VALIDATION_ERROR"}
	s.Assertions = nil

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "request was accepted")
}

func TestRun_ExpectMismatch(t *testing.T) {
	s := loadTestScenario(t, "lever_dust_lamp")
	ticks := 3
	s.Expect = &ExpectClause{Terminated: "exhausted", TicksSimulated: &ticks, Warnings: []string{"UNKNOWN_VERSION"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected run to end exhausted, got settled")
	assert.Contains(t, result.Errors[1], "expected 3 ticks simulated, got 4")
	assert.Contains(t, result.Errors[2], "expected warnings [UNKNOWN_VERSION], got []")
}

func TestRun_FailingAssertion(t *testing.T) {
	s := loadTestScenario(t, "lever_dust_lamp")
	s.Assertions = []Assertion{
		{Type: AssertState, Tick: 2, At: []int{0, 0, -1}, Expect: map[string]any{"on": true}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: state")
	assert.Contains(t, result.Errors[0], "on=false")
}

func TestRun_CustomRules(t *testing.T) {
	rules, err := quirks.Parse([]byte(`
default_edition: java
editions:
  java:
    versions:
      "1.21":
        quasi_connectivity: true
        repeater_locking: true
        comparator_rear: analog
        zero_tick: false
        dust_diagonals: true
        diagonal_across_chunks: true
        block_update_detection: true
`))
	require.NoError(t, err)

	result, err := New(WithRules(rules)).Run(context.Background(), loadTestScenario(t, "unknown_version"))
	require.NoError(t, err)

	// The table has no version at or below 1.18, so the smallest known
	// version is used and the warning still fires.
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "1.21", result.Run.Policy.Version)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Run(ctx, loadTestScenario(t, "lever_dust_lamp"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, strings.HasPrefix(err.Error(), "scenario lever_dust_lamp:"))
}

func TestRun_WorkersDoNotChangeOutcome(t *testing.T) {
	s := loadTestScenario(t, "torch_inverter")

	sequential, err := Run(s)
	require.NoError(t, err)
	parallel, err := New(WithWorkers(4)).Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, sequential.Diffs(), parallel.Diffs())
	assert.Equal(t, sequential.Run.Digest, parallel.Run.Digest)
}
