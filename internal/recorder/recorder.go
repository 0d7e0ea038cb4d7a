// Package recorder accumulates the per-tick log of observable changes.
//
// The recorder sees every touched position of a tick, compares the
// observable projection before and after, and appends a Diff when at least
// one projection differs. Internal counters never reach the log. Diffs are
// append-only and never mutated after being recorded.
package recorder

import (
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/engine"
	"github.com/roach88/redstonesim/internal/world"
)

// Change is the new observable state of one position. A removed block
// reports KindAir.
type Change struct {
	Pos   cube.Pos
	State block.Observable
}

// Diff is the ordered set of changes produced by one tick.
type Diff struct {
	Tick    int      `json:"tick"`
	Changes []Change `json:"changes"`
}

// Stats summarizes a run.
type Stats struct {
	TicksSimulated int     `json:"ticks_simulated"`
	ElapsedMs      float64 `json:"elapsed_ms"`
	Blocks         int     `json:"blocks"`
	EditsApplied   int     `json:"edits_applied"`
	Changes        int     `json:"changes"`
}

// Recorder collects diffs for one run. It is not safe for concurrent use.
type Recorder struct {
	diffs   []Diff
	sink    func(Diff)
	now     func() time.Time
	start   time.Time
	ticks   int
	edits   int
	changes int
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the wall clock used for elapsed time.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithSink registers a callback invoked with every diff as it is recorded.
func WithSink(fn func(Diff)) Option {
	return func(r *Recorder) {
		r.sink = fn
	}
}

// New creates a recorder and starts its elapsed-time measurement.
func New(opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	return r
}

// Record appends the observable changes of tick, if any, and returns them.
func (r *Recorder) Record(tick engine.Tick) (Diff, bool) {
	r.ticks = tick.Number
	r.edits += tick.EditsApplied

	var changes []Change
	for _, pos := range tick.Touched {
		before := observe(tick.Before, pos)
		after := observe(tick.After, pos)
		if before != after {
			changes = append(changes, Change{Pos: pos, State: after})
		}
	}
	if len(changes) == 0 {
		return Diff{}, false
	}

	d := Diff{Tick: tick.Number, Changes: changes}
	r.diffs = append(r.diffs, d)
	r.changes += len(changes)
	if r.sink != nil {
		r.sink(d)
	}
	return d, true
}

func observe(w *world.World, pos cube.Pos) block.Observable {
	b, ok := w.Get(pos)
	if !ok {
		return block.Air().Observe()
	}
	return b.Observe()
}

// Finalize returns the recorded diffs and the run statistics. blocks is the
// final block count.
func (r *Recorder) Finalize(blocks int) ([]Diff, Stats) {
	elapsed := r.now().Sub(r.start)
	return r.diffs, Stats{
		TicksSimulated: r.ticks,
		ElapsedMs:      float64(elapsed.Microseconds()) / 1000,
		Blocks:         blocks,
		EditsApplied:   r.edits,
		Changes:        r.changes,
	}
}
