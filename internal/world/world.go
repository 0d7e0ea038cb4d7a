// Package world provides the sparse block store owned by one simulation run.
//
// A World maps positions to blocks, keeps its positions in ascending
// coordinate order and addresses each block by a stable slot index. Slot
// indices change only when a block is added or removed, which bumps the
// revision. Derivation writes state through SetSlot, which never changes the
// layout, so disjoint slots can be written concurrently.
package world

import (
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
)

// World is an ordered sparse mapping from position to block. Absent positions
// are air.
type World struct {
	order    []cube.Pos
	index    map[cube.Pos]int
	cells    []block.Block
	revision uint64
}

// New creates an empty world.
func New() *World {
	return &World{index: make(map[cube.Pos]int)}
}

// Len returns the number of blocks.
func (w *World) Len() int {
	return len(w.order)
}

// Revision changes whenever the layout (positions, kinds or facings) changes.
func (w *World) Revision() uint64 {
	return w.revision
}

// Get returns the block at pos.
func (w *World) Get(pos cube.Pos) (block.Block, bool) {
	i, ok := w.index[pos]
	if !ok {
		return block.Block{}, false
	}
	return w.cells[i], true
}

// Occupied reports whether pos holds a block.
func (w *World) Occupied(pos cube.Pos) bool {
	_, ok := w.index[pos]
	return ok
}

// Slot returns the slot index of pos.
func (w *World) Slot(pos cube.Pos) (int, bool) {
	i, ok := w.index[pos]
	return i, ok
}

// At returns the position and block in slot i.
func (w *World) At(i int) (cube.Pos, block.Block) {
	return w.order[i], w.cells[i]
}

// SetSlot overwrites the state of slot i. The replacement must keep the kind
// and facing of the existing block.
func (w *World) SetSlot(i int, b block.Block) {
	w.cells[i] = b
}

// Set places b at pos, replacing any existing block. Placing air removes the
// block.
func (w *World) Set(pos cube.Pos, b block.Block) {
	if b.Kind == block.KindAir {
		w.Remove(pos)
		return
	}
	w.revision++
	if i, ok := w.index[pos]; ok {
		w.cells[i] = b
		return
	}
	i, _ := slices.BinarySearchFunc(w.order, pos, block.ComparePos)
	w.order = slices.Insert(w.order, i, pos)
	w.cells = slices.Insert(w.cells, i, b)
	w.reindex(i)
}

// Remove deletes the block at pos and reports whether one was present.
func (w *World) Remove(pos cube.Pos) bool {
	i, ok := w.index[pos]
	if !ok {
		return false
	}
	w.revision++
	delete(w.index, pos)
	w.order = slices.Delete(w.order, i, i+1)
	w.cells = slices.Delete(w.cells, i, i+1)
	w.reindex(i)
	return true
}

func (w *World) reindex(from int) {
	for i := from; i < len(w.order); i++ {
		w.index[w.order[i]] = i
	}
}

// Positions returns the occupied positions in ascending order.
func (w *World) Positions() []cube.Pos {
	return slices.Clone(w.order)
}

// Each calls fn for every block in ascending position order until fn returns
// false.
func (w *World) Each(fn func(pos cube.Pos, b block.Block) bool) {
	for i, pos := range w.order {
		if !fn(pos, w.cells[i]) {
			return
		}
	}
}

// Clone returns an independent copy with the same revision.
func (w *World) Clone() *World {
	c := &World{
		order:    slices.Clone(w.order),
		cells:    slices.Clone(w.cells),
		index:    make(map[cube.Pos]int, len(w.index)),
		revision: w.revision,
	}
	for pos, i := range w.index {
		c.index[pos] = i
	}
	return c
}

// Neighbours returns the occupied face neighbours of pos in face order.
func (w *World) Neighbours(pos cube.Pos) []cube.Pos {
	var out []cube.Pos
	for _, f := range cube.Faces() {
		if n := pos.Side(f); w.Occupied(n) {
			out = append(out, n)
		}
	}
	return out
}
