package harness

import (
	"maps"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/simerr"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Errors contains one message per failed check.
	Errors []string `json:"errors,omitempty"`

	// Run is the simulation result, nil when the request was rejected.
	Run *sim.Result `json:"-"`

	// Rejected is the error the request was rejected with, if any.
	Rejected *simerr.Error `json:"-"`

	initial map[cube.Pos]recorder.Change
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Errors:  []string{},
		initial: map[cube.Pos]recorder.Change{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Diffs returns the diff log, empty for a rejected request.
func (r *Result) Diffs() []recorder.Diff {
	if r.Run == nil {
		return []recorder.Diff{}
	}
	return r.Run.Diffs
}

// StateAt returns the observable state at pos after tick, replaying the diff
// log over the initial layout. Tick 0 is the initial layout. Reports false
// when no block stands at pos.
func (r *Result) StateAt(pos cube.Pos, tick int) (recorder.Change, bool) {
	state := maps.Clone(r.initial)
	for _, d := range r.Diffs() {
		if d.Tick > tick {
			break
		}
		for _, c := range d.Changes {
			state[c.Pos] = c
		}
	}
	c, ok := state[pos]
	if !ok || c.State.Kind == block.KindAir {
		return recorder.Change{}, false
	}
	return c, true
}

// Final returns the observable state after the last simulated tick.
func (r *Result) Final(pos cube.Pos) (recorder.Change, bool) {
	if r.Run == nil {
		return recorder.Change{}, false
	}
	for _, c := range r.Run.Final {
		if c.Pos == pos {
			return c, true
		}
	}
	return recorder.Change{}, false
}

func (r *Result) setInitial(blocks []block.Placed) {
	for _, p := range blocks {
		if p.TickAt == 0 {
			r.initial[p.Pos] = recorder.Change{Pos: p.Pos, State: p.Block.Observe()}
		}
	}
}
