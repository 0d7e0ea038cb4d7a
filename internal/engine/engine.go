package engine

import (
	"log/slog"
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/world"
)

// State is the scheduler state after a tick.
type State int

const (
	// StateRunning means the circuit may still change.
	StateRunning State = iota
	// StateSettled means the last tick changed nothing and no edit is pending.
	StateSettled
	// StateExhausted means the tick budget ran out before settling.
	StateExhausted
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateSettled:
		return "settled"
	case StateExhausted:
		return "exhausted"
	default:
		return "running"
	}
}

// Tick is the outcome of one scheduler step.
type Tick struct {
	// Number is the tick just simulated, starting at 1.
	Number int

	// Before is the snapshot the tick read from. After is the state it
	// produced. Neither is mutated afterwards.
	Before *world.World
	After  *world.World

	// Touched lists, in ascending order, every position whose block differs
	// between Before and After, internal state included.
	Touched []cube.Pos

	// EditsApplied counts the edits popped this tick.
	EditsApplied int

	// State is StateSettled or StateRunning.
	State State
}

// Engine is the tick-stepped update scheduler of one run.
//
// The engine owns its world, queue and policy for its whole lifetime. Step is
// single-threaded: tick t+1 never starts before tick t's buffers have been
// swapped. Within a tick, derivation may fan out over connected components.
type Engine struct {
	world   *world.World
	queue   *EditQueue
	policy  quirks.Policy
	clock   *Clock
	workers int
	logger  *slog.Logger
	state   State

	snap       *view
	components [][]int
	compRev    uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of goroutines used for derivation. Values
// below 2 derive sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger sets the logger used for per-tick debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the tick clock. Used to resume numbering.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an engine over w. The engine takes ownership of w and q.
func New(w *world.World, q *EditQueue, policy quirks.Policy, opts ...Option) *Engine {
	e := &Engine{
		world:   w,
		queue:   q,
		policy:  policy,
		clock:   NewClock(),
		workers: 1,
		logger:  slog.Default(),
		state:   StateRunning,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.queue == nil {
		e.queue = &EditQueue{}
	}
	return e
}

// World returns the state produced by the last tick.
func (e *Engine) World() *world.World {
	return e.world
}

// State returns the state after the last tick.
func (e *Engine) State() State {
	return e.state
}

// Current returns the last simulated tick.
func (e *Engine) Current() int {
	return int(e.clock.Current())
}

// Step simulates one tick.
func (e *Engine) Step() Tick {
	t := int(e.clock.Next())
	opts := e.policy.Topology()

	e.snap = e.snap.rebind(e.world, opts)
	snap := e.snap
	next := e.world.Clone()

	// 1. Apply due edits. Edited positions keep their new block this tick.
	due := e.queue.PopDue(t)
	edited := make(map[cube.Pos]bool, len(due))
	for _, ed := range due {
		next.Set(ed.Pos, ed.Block)
		edited[ed.Pos] = true
	}

	// 2. Derive non-consumers from the snapshot into next.
	nextView := snap.rebind(next, opts)
	e.derive(snap, nextView, edited)

	// 3. Consumers read the derived next buffer.
	e.consume(snap, nextView, edited)

	touched := diffPositions(e.world, next)
	state := StateRunning
	if len(touched) == 0 && !e.queue.PendingAfter(t) {
		state = StateSettled
	}

	tick := Tick{
		Number:       t,
		Before:       e.world,
		After:        next,
		Touched:      touched,
		EditsApplied: len(due),
		State:        state,
	}

	// 4. Swap.
	e.world = next
	e.snap = nextView
	e.state = state

	e.logger.Debug("tick",
		"tick", t,
		"edits", len(due),
		"touched", len(touched),
		"state", state.String())
	return tick
}

// Exhaust marks the run as having used its tick budget. A settled run stays
// settled.
func (e *Engine) Exhaust() {
	if e.state != StateSettled {
		e.state = StateExhausted
	}
}

func (e *Engine) derive(snap, next *view, edited map[cube.Pos]bool) {
	work := func(slots []int) {
		for _, i := range slots {
			pos, b := next.w.At(i)
			if edited[pos] || b.Kind.Consumer() {
				continue
			}
			next.w.SetSlot(i, derive(snap, e.policy, pos, b))
		}
	}

	comps := e.partition(next)
	if e.workers < 2 || len(comps) < 2 {
		for _, c := range comps {
			work(c)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, c := range comps {
		g.Go(func() error {
			work(c)
			return nil
		})
	}
	// Workers never fail; Wait is the barrier between derivation and the
	// consumer pass.
	_ = g.Wait()
}

// consume evaluates every consumer against next. Results are collected before
// any is written so consumers never observe each other within a tick.
func (e *Engine) consume(snap, next *view, edited map[cube.Pos]bool) {
	type result struct {
		slot int
		b    block.Block
	}
	var results []result
	for i := 0; i < next.w.Len(); i++ {
		pos, b := next.w.At(i)
		if edited[pos] || !b.Kind.Consumer() {
			continue
		}
		nb := consume(next, e.policy, pos, b, neighbourChanged(snap.w, next.w, pos))
		if nb != b {
			results = append(results, result{slot: i, b: nb})
		}
	}
	for _, r := range results {
		next.w.SetSlot(r.slot, r.b)
	}
}

// partition returns the connected components of next, cached per layout
// revision.
func (e *Engine) partition(next *view) [][]int {
	if e.components == nil || e.compRev != next.revision {
		e.components = next.w.Components(next.links)
		e.compRev = next.revision
	}
	return e.components
}

func neighbourChanged(before, after *world.World, pos cube.Pos) bool {
	for _, f := range cube.Faces() {
		n := pos.Side(f)
		a, aok := before.Get(n)
		b, bok := after.Get(n)
		if aok != bok || a != b {
			return true
		}
	}
	return false
}

// diffPositions merges the ordered layouts of before and after and returns
// every position whose block differs.
func diffPositions(before, after *world.World) []cube.Pos {
	var out []cube.Pos
	bp, ap := before.Positions(), after.Positions()
	i, j := 0, 0
	for i < len(bp) || j < len(ap) {
		switch {
		case j == len(ap) || (i < len(bp) && block.ComparePos(bp[i], ap[j]) < 0):
			out = append(out, bp[i])
			i++
		case i == len(bp) || block.ComparePos(bp[i], ap[j]) > 0:
			out = append(out, ap[j])
			j++
		default:
			_, a := before.At(i)
			_, b := after.At(j)
			if a != b {
				out = append(out, bp[i])
			}
			i++
			j++
		}
	}
	return slices.Clip(out)
}
