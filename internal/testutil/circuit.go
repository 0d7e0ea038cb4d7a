package testutil

import (
	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/world"
)

// Circuit builds block layouts for tests.
//
//	c := testutil.NewCircuit().
//		Place(cube.Pos{0, 0, 0}, block.Dust(0)).
//		EditAt(2, cube.Pos{0, 0, 1}, block.Lever(cube.FaceNorth, true))
type Circuit struct {
	blocks []block.Placed
}

// NewCircuit creates an empty circuit.
func NewCircuit() *Circuit {
	return &Circuit{}
}

// Place adds b to the initial layout.
func (c *Circuit) Place(pos cube.Pos, b block.Block) *Circuit {
	c.blocks = append(c.blocks, block.Placed{Pos: pos, Block: b})
	return c
}

// EditAt schedules b at pos for tick.
func (c *Circuit) EditAt(tick int, pos cube.Pos, b block.Block) *Circuit {
	c.blocks = append(c.blocks, block.Placed{Pos: pos, Block: b, TickAt: tick})
	return c
}

// Blocks returns every placement, initial layout and edits, in insertion
// order.
func (c *Circuit) Blocks() []block.Placed {
	out := make([]block.Placed, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// World returns a world holding the initial layout.
func (c *Circuit) World() *world.World {
	w := world.New()
	for _, p := range c.blocks {
		if p.TickAt == 0 {
			w.Set(p.Pos, p.Block)
		}
	}
	return w
}

// LeverDustLamp is a lamp fed by one dust from a lever that is switched on at
// tick 2.
func LeverDustLamp() *Circuit {
	return NewCircuit().
		Place(cube.Pos{0, 0, -1}, block.Lamp(false)).
		Place(cube.Pos{0, 0, 0}, block.Dust(0)).
		Place(cube.Pos{0, 0, 1}, block.Lever(cube.FaceNorth, false)).
		EditAt(2, cube.Pos{0, 0, 1}, block.Lever(cube.FaceNorth, true))
}

// DustChain is a powered lever at x=-1 driving n dust along +x.
func DustChain(n int) *Circuit {
	c := NewCircuit().Place(cube.Pos{-1, 0, 0}, block.Lever(cube.FaceEast, true))
	for i := 0; i < n; i++ {
		c.Place(cube.Pos{i, 0, 0}, block.Dust(0))
	}
	return c
}
