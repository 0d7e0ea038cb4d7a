// Package topology resolves which positions a block reads power from and
// which positions it can power.
//
// Resolve is a pure function of the block, its position, a set of capability
// options and an optional occupancy view. It knows nothing about editions or
// versions; version-dependent behaviour arrives as Options booleans chosen by
// the quirk policy.
package topology

import (
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
)

// Options are the connectivity capabilities of a ruleset.
type Options struct {
	// QuasiConnectivity adds the block below a lever or button mount to its
	// outputs and marks it quasi.
	QuasiConnectivity bool

	// DustDiagonals connects dust up and down one block across a step.
	DustDiagonals bool

	// DiagonalAcrossChunks keeps diagonal dust links whose endpoints lie in
	// different 16x16 chunk columns.
	DiagonalAcrossChunks bool
}

// Occupancy reports whether a position holds a block. A nil Occupancy treats
// every position as empty.
type Occupancy func(cube.Pos) bool

// Connections is the resolved neighbourhood of one block. Each list is sorted
// in ascending coordinate order.
type Connections struct {
	// Inputs are the positions the block reads power from.
	Inputs []cube.Pos

	// Outputs are the positions the block can power.
	Outputs []cube.Pos

	// Sides are the side inputs of repeaters and comparators.
	Sides []cube.Pos

	// Quasi are the outputs reached only through quasi-connectivity. They
	// power pistons and nothing else.
	Quasi []cube.Pos
}

// Resolve returns the connections of b placed at pos.
func Resolve(pos cube.Pos, b block.Block, opts Options, occupied Occupancy) Connections {
	if occupied == nil {
		occupied = func(cube.Pos) bool { return false }
	}

	var c Connections
	switch b.Kind {
	case block.KindAir:
		return c
	case block.KindLever, block.KindButton:
		mount := pos.Side(b.Facing)
		c.Outputs = []cube.Pos{mount}
		if opts.QuasiConnectivity {
			below := mount.Side(cube.FaceDown)
			c.Outputs = append(c.Outputs, below)
			c.Quasi = []cube.Pos{below}
		}
	case block.KindDust:
		links := dustLinks(pos, opts, occupied)
		c.Inputs = links
		c.Outputs = slices.Clone(links)
	case block.KindLamp:
		c.Inputs = faceNeighbours(pos)
	case block.KindRepeater, block.KindComparator:
		c.Inputs = []cube.Pos{pos.Side(b.Facing.Opposite())}
		c.Outputs = []cube.Pos{pos.Side(b.Facing)}
		c.Sides = []cube.Pos{pos.Side(b.Facing.RotateLeft()), pos.Side(b.Facing.RotateRight())}
	case block.KindTorch:
		attachment := pos.Side(b.Facing)
		c.Inputs = []cube.Pos{attachment}
		for _, n := range faceNeighbours(pos) {
			if n != attachment {
				c.Outputs = append(c.Outputs, n)
			}
		}
	case block.KindPiston, block.KindHopper:
		c.Inputs = []cube.Pos{pos.Side(b.Facing.Opposite())}
	}

	sortPositions(c.Inputs)
	sortPositions(c.Outputs)
	sortPositions(c.Sides)
	sortPositions(c.Quasi)
	return c
}

// IsDiagonal reports whether a and b differ on the vertical axis as well as
// horizontally. Diagonal links only carry signal between dust.
func IsDiagonal(a, b cube.Pos) bool {
	return a[1] != b[1] && (a[0] != b[0] || a[2] != b[2])
}

// QuasiSources returns the positions from which a lever or button could
// reach target through quasi-connectivity, paired with the facing the source
// must have.
func QuasiSources(target cube.Pos) map[cube.Pos]cube.Face {
	out := make(map[cube.Pos]cube.Face, 5)
	for _, f := range cube.Faces() {
		if f == cube.FaceUp {
			continue
		}
		out[target.Side(cube.FaceUp).Side(f.Opposite())] = f
	}
	return out
}

func dustLinks(pos cube.Pos, opts Options, occupied Occupancy) []cube.Pos {
	links := make([]cube.Pos, 0, 12)
	above := pos.Side(cube.FaceUp)
	for _, h := range cube.HorizontalFaces() {
		side := pos.Side(h)
		links = append(links, side)
		if !opts.DustDiagonals {
			continue
		}
		if up := side.Side(cube.FaceUp); !occupied(above) && crossOK(pos, up, opts) {
			links = append(links, up)
		}
		if down := side.Side(cube.FaceDown); !occupied(side) && crossOK(pos, down, opts) {
			links = append(links, down)
		}
	}
	return links
}

func crossOK(from, to cube.Pos, opts Options) bool {
	return opts.DiagonalAcrossChunks || block.ChunkColumn(from) == block.ChunkColumn(to)
}

func faceNeighbours(pos cube.Pos) []cube.Pos {
	out := make([]cube.Pos, 0, 6)
	for _, f := range cube.Faces() {
		out = append(out, pos.Side(f))
	}
	return out
}

func sortPositions(ps []cube.Pos) {
	slices.SortFunc(ps, block.ComparePos)
}
