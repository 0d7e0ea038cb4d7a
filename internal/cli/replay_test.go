package cli

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staleDigest overwrites a journaled digest so the next replay diverges.
func staleDigest(t *testing.T, dbPath, id string) {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("UPDATE runs SET diff_digest = 'stale' WHERE id = ?", id)
	require.NoError(t, err)
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath, _ := setupJournal(t)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestReplayAllDeterministic(t *testing.T) {
	dbPath, ids := setupJournal(t, leverDustLamp, leverDustLamp)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--workers", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+ids[0])
	assert.Contains(t, out, "✓ "+ids[1])
	assert.Contains(t, out, "✓ All 2 run(s) deterministic")
}

func TestReplaySingleRunJSON(t *testing.T) {
	dbPath, ids := setupJournal(t, leverDustLamp, leverDustLamp)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "json"}), ids[1], "--db", dbPath)
	require.NoError(t, err)

	resp, data := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, data.AllDeterministic)
	require.Len(t, data.Runs, 1)
	assert.Equal(t, ids[1], data.Runs[0].RunID)
	assert.Equal(t, data.Runs[0].StoredDigest, data.Runs[0].FreshDigest)
	assert.Zero(t, data.Runs[0].Divergence)
}

func TestReplayDiverged(t *testing.T) {
	dbPath, ids := setupJournal(t, leverDustLamp)
	staleDigest(t, dbPath, ids[0])

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+ids[0])
	assert.Contains(t, out, "diverged at tick 2")
	assert.Contains(t, out, "stored: stale")
	assert.Contains(t, out, "✗ Determinism verification failed")
}

func TestReplayDivergedJSON(t *testing.T) {
	dbPath, ids := setupJournal(t, leverDustLamp)
	staleDigest(t, dbPath, ids[0])

	out, err := execute(NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDiverged, resp.Error.Code)
	assert.False(t, data.AllDeterministic)
	require.Len(t, data.Runs, 1)
	assert.Equal(t, 2, data.Runs[0].Divergence)
}

func TestReplayUnknownRun(t *testing.T) {
	dbPath, _ := setupJournal(t, leverDustLamp)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "json"}), "no-such-run", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, _ := decodeResponse[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
