package engine

import (
	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/quirks"
)

// derive computes the next state of a non-consumer block from the previous
// tick's snapshot.
func derive(snap *view, policy quirks.Policy, pos cube.Pos, b block.Block) block.Block {
	_, c, ok := snap.lookup(pos)
	if !ok {
		// Placed by an edit this tick; derivation skips it.
		return b
	}

	switch b.Kind {
	case block.KindLever, block.KindAir:
		return b
	case block.KindButton:
		if b.TicksRemaining > 0 {
			b.TicksRemaining--
		}
		return b
	case block.KindDust:
		power := 0
		for _, src := range c.Inputs {
			sb, lvl, ok := snap.emits(src, pos, block.KindDust)
			if !ok {
				continue
			}
			if sb.Kind == block.KindDust {
				lvl--
			}
			power = max(power, lvl)
		}
		b.Power = min(max(power, 0), block.MaxPower)
		return b
	case block.KindRepeater:
		return deriveRepeater(snap, policy, pos, b, c.Inputs, c.Sides)
	case block.KindComparator:
		return deriveComparator(snap, policy, pos, b, c.Inputs, c.Sides)
	case block.KindTorch:
		b.Lit = strongestInput(snap, pos, b.Kind, c.Inputs) == 0
		return b
	case block.KindLamp, block.KindPiston, block.KindHopper:
		return b
	}
	return b
}

func deriveRepeater(snap *view, policy quirks.Policy, pos cube.Pos, b block.Block, back, sides []cube.Pos) block.Block {
	in := strongestInput(snap, pos, b.Kind, back) > 0

	b.Locked = policy.RepeaterLocking && sideLocked(snap, pos, b.Kind, sides)
	if b.Locked {
		return b
	}

	switch {
	case b.TicksRemaining > 0:
		b.TicksRemaining--
		if policy.ZeroTick && in == b.Powered {
			// Input reverted inside the delay window: the toggle collapses.
			b.TicksRemaining = 0
			return b
		}
		if b.TicksRemaining == 0 {
			b.Powered = !b.Powered
		}
	case in != b.Powered:
		b.TicksRemaining = b.Delay - 1
		if b.TicksRemaining == 0 {
			b.Powered = in
		}
	}
	return b
}

// sideLocked reports whether a powered repeater or comparator points into pos
// from the side.
func sideLocked(snap *view, pos cube.Pos, kind block.Kind, sides []cube.Pos) bool {
	for _, src := range sides {
		sb, lvl, ok := snap.emits(src, pos, kind)
		if !ok || lvl == 0 {
			continue
		}
		if sb.Kind == block.KindRepeater || sb.Kind == block.KindComparator {
			return true
		}
	}
	return false
}

func deriveComparator(snap *view, policy quirks.Policy, pos cube.Pos, b block.Block, back, sides []cube.Pos) block.Block {
	front := strongestInput(snap, pos, b.Kind, back)
	if policy.ComparatorRear == quirks.RearBinary && front > 0 {
		front = block.MaxPower
	}
	side := strongestInput(snap, pos, b.Kind, sides)

	switch b.Mode {
	case block.ModeSubtract:
		b.Output = max(front-side, 0)
	case block.ModeCompare:
		if front >= side {
			b.Output = front
		} else {
			b.Output = 0
		}
	}
	return b
}

// strongestInput returns the highest level any wired source in from sends
// into pos. Dust sources arrive at full strength for non-dust receivers.
func strongestInput(v *view, pos cube.Pos, kind block.Kind, from []cube.Pos) int {
	best := 0
	for _, src := range from {
		if _, lvl, ok := v.emits(src, pos, kind); ok {
			best = max(best, lvl)
		}
	}
	return best
}

// consume evaluates a lamp, piston or hopper against the freshly derived next
// view. neighbourChanged reports whether any face neighbour changed this tick.
func consume(next *view, policy quirks.Policy, pos cube.Pos, b block.Block, neighbourChanged bool) block.Block {
	_, c, ok := next.lookup(pos)
	if !ok {
		return b
	}

	switch b.Kind {
	case block.KindLamp:
		b.On = strongestInput(next, pos, b.Kind, c.Inputs) > 0
	case block.KindHopper:
		b.Enabled = strongestInput(next, pos, b.Kind, c.Inputs) == 0
	case block.KindPiston:
		direct := strongestInput(next, pos, b.Kind, c.Inputs) > 0
		quasiOnly := !direct && policy.QuasiConnectivity && next.quasi(pos)
		powered := direct || quasiOnly
		if powered == b.Powered {
			return b
		}
		if quasiOnly && policy.BlockUpdateDetection && !neighbourChanged {
			// A quasi edge stays pending until a neighbour update arrives.
			return b
		}
		b.Powered = powered
		b.Extended = powered
	case block.KindAir, block.KindLever, block.KindButton, block.KindDust,
		block.KindRepeater, block.KindComparator, block.KindTorch:
	}
	return b
}
