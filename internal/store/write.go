package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/redstonesim/internal/ir"
	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/sim"
)

// WriteRun journals a completed run: the request in canonical wire form, the
// run summary and one row per diff tick. Everything is written in one
// transaction. Returns the new run ID, a UUIDv7.
func (s *Store) WriteRun(ctx context.Context, req sim.Request, res *sim.Result) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("write run: generate id: %w", err)
	}
	runID := id.String()

	requestJSON, requestDigest, err := marshalRequest(req)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	warningsJSON, err := marshalWarnings(protocol.NewSimulateResponse(res).Warnings)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, edition, version, ticks_requested, early_exit, terminated,
		 ticks_simulated, elapsed_ms, blocks, edits_applied, changes,
		 request, request_digest, diff_digest, warnings, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		s.now().UTC().Format(time.RFC3339Nano),
		res.Policy.Edition,
		res.Policy.Version,
		req.Ticks,
		req.EarlyExit,
		res.Terminated.String(),
		res.Stats.TicksSimulated,
		res.Stats.ElapsedMs,
		res.Stats.Blocks,
		res.Stats.EditsApplied,
		res.Stats.Changes,
		requestJSON,
		requestDigest,
		res.Digest,
		warningsJSON,
		ir.EngineVersion,
	)
	if err != nil {
		return "", fmt.Errorf("write run: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO diffs (run_id, tick, changes) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("write run: prepare diffs: %w", err)
	}
	defer stmt.Close()

	for _, d := range res.Diffs {
		changesJSON, err := marshalChanges(d.Changes)
		if err != nil {
			return "", fmt.Errorf("write run: tick %d: %w", d.Tick, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, d.Tick, changesJSON); err != nil {
			return "", fmt.Errorf("write run: insert diff for tick %d: %w", d.Tick, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: commit: %w", err)
	}
	return runID, nil
}

// DeleteRun removes a run and its diffs. Deleting an unknown run is not an
// error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
