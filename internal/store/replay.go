package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/sim"
)

// ReplayResult compares a journaled run with a fresh run of the same
// request.
type ReplayResult struct {
	Run    Run
	Result *sim.Result

	// Match is true when the fresh diff log has the journaled digest.
	Match bool

	// Divergence is the first tick whose diff differs, or 0 when the logs
	// match. A log that is a strict prefix of the other diverges at the
	// first tick present in only one of them.
	Divergence int
}

// Replay re-simulates a journaled run and checks that it reproduces the same
// diff log. Runs are deterministic, so a mismatch means the engine or the
// ruleset changed since the run was journaled.
func (s *Store) Replay(ctx context.Context, id string, opts ...sim.Option) (ReplayResult, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	req, err := s.ReadRequest(ctx, id)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	res, err := sim.Simulate(ctx, req, opts...)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	out := ReplayResult{Run: run, Result: res, Match: res.Digest == run.DiffDigest}
	if out.Match {
		return out, nil
	}

	stored, err := s.ReadDiffs(ctx, id)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	out.Divergence = firstDivergence(stored, res)
	return out, nil
}

func firstDivergence(stored []recorder.Diff, res *sim.Result) int {
	fresh := res.Diffs
	for i := 0; i < len(stored) && i < len(fresh); i++ {
		a, b := stored[i], fresh[i]
		if a.Tick != b.Tick {
			return min(a.Tick, b.Tick)
		}
		if !slices.Equal(a.Changes, b.Changes) {
			return a.Tick
		}
	}
	switch {
	case len(stored) > len(fresh):
		return stored[len(fresh)].Tick
	case len(fresh) > len(stored):
		return fresh[len(stored)].Tick
	}
	// Same diffs but a different digest: the stored digest came from an
	// older canonical form. Report the first tick.
	if len(stored) > 0 {
		return stored[0].Tick
	}
	return 1
}
