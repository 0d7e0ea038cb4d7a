package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/sim"
)

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Run is a journaled run summary.
type Run struct {
	ID             string             `json:"id"`
	Seq            int64              `json:"seq"`
	CreatedAt      time.Time          `json:"created_at"`
	Edition        string             `json:"edition"`
	Version        string             `json:"version"`
	TicksRequested int                `json:"ticks_requested"`
	EarlyExit      bool               `json:"early_exit"`
	Terminated     string             `json:"terminated"`
	Stats          recorder.Stats     `json:"stats"`
	RequestDigest  string             `json:"request_digest"`
	DiffDigest     string             `json:"diff_digest"`
	Warnings       []protocol.Warning `json:"warnings,omitempty"`
	EngineVersion  string             `json:"engine_version"`
}

const runColumns = `
	seq, id, created_at, edition, version, ticks_requested, early_exit, terminated,
	ticks_simulated, elapsed_ms, blocks, edits_applied, changes,
	request_digest, diff_digest, warnings, engine_version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r         Run
		createdAt string
		warnings  string
	)
	err := row.Scan(
		&r.Seq, &r.ID, &createdAt, &r.Edition, &r.Version, &r.TicksRequested, &r.EarlyExit, &r.Terminated,
		&r.Stats.TicksSimulated, &r.Stats.ElapsedMs, &r.Stats.Blocks, &r.Stats.EditsApplied, &r.Stats.Changes,
		&r.RequestDigest, &r.DiffDigest, &warnings, &r.EngineVersion,
	)
	if err != nil {
		return Run{}, err
	}
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	r.Warnings, err = unmarshalWarnings(warnings)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first, at most limit of them. A
// limit of zero or less returns every run.
// Ordering uses the insertion sequence, never timestamps.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a run summary by ID.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ReadRequest returns the request a run was started with.
func (s *Store) ReadRequest(ctx context.Context, id string) (sim.Request, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT request FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return sim.Request{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return sim.Request{}, fmt.Errorf("read request %s: %w", id, err)
	}
	return unmarshalRequest(data)
}

// ReadDiffs returns the diff log of a run in tick order.
// Returns an empty slice (not nil) for a run without changes.
func (s *Store) ReadDiffs(ctx context.Context, id string) ([]recorder.Diff, error) {
	if _, err := s.ReadRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, changes
		FROM diffs
		WHERE run_id = ?
		ORDER BY tick ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query diffs: %w", err)
	}
	defer rows.Close()

	diffs := []recorder.Diff{}
	for rows.Next() {
		var (
			tick int
			data string
		)
		if err := rows.Scan(&tick, &data); err != nil {
			return nil, fmt.Errorf("scan diff: %w", err)
		}
		changes, err := unmarshalChanges(data)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", tick, err)
		}
		diffs = append(diffs, recorder.Diff{Tick: tick, Changes: changes})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diffs: %w", err)
	}
	return diffs, nil
}

// FindByRequest returns the IDs of runs whose request digest matches, oldest
// first.
func (s *Store) FindByRequest(ctx context.Context, requestDigest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs WHERE request_digest = ? ORDER BY seq ASC
	`, requestDigest)
	if err != nil {
		return nil, fmt.Errorf("query runs by request: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	return ids, nil
}
