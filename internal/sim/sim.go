// Package sim is the simulation facade.
//
// Simulate validates a request, resolves the quirk policy, builds the world
// and the edit queue, then drives the engine one tick at a time until the
// budget is spent or, with early exit, the circuit settles. Cancellation is
// checked between ticks; the engine itself never blocks.
//
// Connections answers the auxiliary query: the resolver output for one block
// with no simulation.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/engine"
	"github.com/roach88/redstonesim/internal/ir"
	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/topology"
)

// Request is a validated-shape simulation request.
type Request struct {
	// Ticks is the tick budget.
	Ticks int

	// EarlyExit stops the run on the first settled tick.
	EarlyExit bool

	// Blocks holds the initial layout (TickAt 0) and scheduled edits.
	Blocks []block.Placed

	// Edition and Version select the ruleset. Empty means the default.
	Edition string
	Version string
}

// Result is the outcome of a run.
type Result struct {
	Diffs      []recorder.Diff
	Stats      recorder.Stats
	Terminated engine.State
	Warnings   []*simerr.Error
	Policy     quirks.Policy

	// Final is the observable state of every block after the last tick, in
	// ascending position order.
	Final []recorder.Change

	// Digest identifies the diff log.
	Digest string
}

// Simulate runs req to completion. Errors before tick 0 are *simerr.Error
// values; after that the only possible error is ctx's.
func Simulate(ctx context.Context, req Request, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)

	policy, warning, err := cfg.rules.Resolve(req.Edition, req.Version)
	if err != nil {
		return nil, err
	}
	w, q, err := build(req, cfg.bounds)
	if err != nil {
		return nil, err
	}

	log := cfg.logger.With("edition", policy.Edition, "version", policy.Version)
	log.Info("simulation starting",
		"blocks", w.Len(),
		"edits", q.Len(),
		"ticks", req.Ticks,
		"early_exit", req.EarlyExit)

	eng := engine.New(w, q, policy,
		engine.WithWorkers(cfg.workers),
		engine.WithLogger(log))
	rec := recorder.New(recorder.WithClock(cfg.clock), recorder.WithSink(cfg.sink))

	for t := 1; t <= req.Ticks; t++ {
		if err := ctx.Err(); err != nil {
			log.Info("simulation cancelled", "tick", t-1)
			return nil, fmt.Errorf("simulation cancelled after tick %d: %w", t-1, err)
		}
		tick := eng.Step()
		rec.Record(tick)
		if req.EarlyExit && tick.State == engine.StateSettled {
			break
		}
	}
	eng.Exhaust()

	diffs, stats := rec.Finalize(eng.World().Len())
	if diffs == nil {
		diffs = []recorder.Diff{}
	}
	digest, err := ir.DiffDigest(diffs)
	if err != nil {
		return nil, fmt.Errorf("failed to digest diffs: %w", err)
	}

	res := &Result{
		Diffs:      diffs,
		Stats:      stats,
		Terminated: eng.State(),
		Policy:     policy,
		Final:      finalState(eng),
		Digest:     digest,
	}
	if warning != nil {
		res.Warnings = append(res.Warnings, warning)
		log.Warn("version approximated", "requested", req.Version)
	}

	log.Info("simulation finished",
		"ticks_simulated", stats.TicksSimulated,
		"terminated", res.Terminated.String(),
		"changes", stats.Changes,
		"elapsed", time.Duration(stats.ElapsedMs*float64(time.Millisecond)))
	return res, nil
}

func finalState(eng *engine.Engine) []recorder.Change {
	out := make([]recorder.Change, 0, eng.World().Len())
	eng.World().Each(func(pos cube.Pos, b block.Block) bool {
		out = append(out, recorder.Change{Pos: pos, State: b.Observe()})
		return true
	})
	return out
}

// Connections resolves the inputs and outputs of b at pos under policy. No
// simulation is performed and no neighbours are assumed.
func Connections(pos cube.Pos, b block.Block, policy quirks.Policy) (topology.Connections, error) {
	if b.Kind == block.KindAir {
		return topology.Connections{}, simerr.ValidationAt(pos, "air has no connections")
	}
	if err := b.Validate(); err != nil {
		return topology.Connections{}, simerr.ValidationAt(pos, "%s", err.Error())
	}
	return topology.Resolve(pos, b, policy.Topology(), nil), nil
}
