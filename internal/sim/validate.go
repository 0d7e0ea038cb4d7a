package sim

import (
	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/engine"
	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/world"
)

type placementKey struct {
	pos  cube.Pos
	tick int
}

// build validates the request and splits it into the initial world and the
// edit queue. All failures are ValidationErrors and happen before tick 0.
func build(req Request, bounds Bounds) (*world.World, *engine.EditQueue, error) {
	if req.Ticks < 0 {
		return nil, nil, simerr.Validation("ticks %d must be >= 0", req.Ticks)
	}

	seen := make(map[placementKey]bool, len(req.Blocks))
	w := world.New()
	var edits []engine.Edit
	for _, p := range req.Blocks {
		if p.TickAt < 0 {
			return nil, nil, simerr.ValidationAt(p.Pos, "tick_at %d must be >= 0", p.TickAt)
		}
		if err := checkBounds(p.Pos, bounds); err != nil {
			return nil, nil, err
		}
		if err := p.Block.Validate(); err != nil {
			return nil, nil, simerr.ValidationAt(p.Pos, "%s", err.Error())
		}

		key := placementKey{pos: p.Pos, tick: p.TickAt}
		if seen[key] {
			if p.TickAt == 0 {
				return nil, nil, simerr.ValidationAt(p.Pos, "duplicate block in initial layout")
			}
			return nil, nil, simerr.ValidationAt(p.Pos, "duplicate edit for tick %d", p.TickAt)
		}
		seen[key] = true

		if p.TickAt == 0 {
			if p.Block.Kind == block.KindAir {
				return nil, nil, simerr.ValidationAt(p.Pos, "air is only valid in a scheduled edit")
			}
			w.Set(p.Pos, p.Block)
			continue
		}
		edits = append(edits, engine.Edit{Tick: p.TickAt, Pos: p.Pos, Block: p.Block})
	}

	q, err := engine.NewEditQueue(edits)
	if err != nil {
		return nil, nil, err
	}
	return w, q, nil
}

func checkBounds(pos cube.Pos, b Bounds) error {
	if b.Limit <= 0 {
		return nil
	}
	for _, c := range pos {
		if c < -b.Limit || c > b.Limit {
			return simerr.ValidationAt(pos, "coordinate out of bounds (limit %d)", b.Limit)
		}
	}
	return nil
}
