package engine

import (
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/topology"
	"github.com/roach88/redstonesim/internal/world"
)

// view pairs a world with the resolved connections of every slot. A view is
// read-only once built and may be shared by derivation workers.
type view struct {
	w        *world.World
	revision uint64
	conns    []topology.Connections
}

func newView(w *world.World, opts topology.Options) *view {
	v := &view{
		w:        w,
		revision: w.Revision(),
		conns:    make([]topology.Connections, w.Len()),
	}
	for i := range v.conns {
		pos, b := w.At(i)
		v.conns[i] = topology.Resolve(pos, b, opts, w.Occupied)
	}
	return v
}

// rebind returns a view over w reusing the connections of v when the layout
// is unchanged.
func (v *view) rebind(w *world.World, opts topology.Options) *view {
	if v != nil && v.revision == w.Revision() && len(v.conns) == w.Len() {
		return &view{w: w, revision: v.revision, conns: v.conns}
	}
	return newView(w, opts)
}

func (v *view) lookup(pos cube.Pos) (block.Block, topology.Connections, bool) {
	i, ok := v.w.Slot(pos)
	if !ok {
		return block.Block{}, topology.Connections{}, false
	}
	_, b := v.w.At(i)
	return b, v.conns[i], true
}

// emits returns the level src sends into dst, if src is wired to dst. Diagonal
// links only carry signal between dust. Quasi outputs are left to quasi.
func (v *view) emits(src, dst cube.Pos, dstKind block.Kind) (block.Block, int, bool) {
	b, c, ok := v.lookup(src)
	if !ok || !slices.Contains(c.Outputs, dst) || slices.Contains(c.Quasi, dst) {
		return block.Block{}, 0, false
	}
	if topology.IsDiagonal(src, dst) && (b.Kind != block.KindDust || dstKind != block.KindDust) {
		return block.Block{}, 0, false
	}
	return b, b.Level(), true
}

// quasi reports whether a powered lever or button reaches target through
// quasi-connectivity.
func (v *view) quasi(target cube.Pos) bool {
	for src, facing := range topology.QuasiSources(target) {
		b, c, ok := v.lookup(src)
		if !ok || b.Facing != facing || b.Level() == 0 {
			continue
		}
		if slices.Contains(c.Quasi, target) {
			return true
		}
	}
	return false
}

// links lists every position slot i is wired to, for component partitioning.
func (v *view) links(i int) []cube.Pos {
	c := v.conns[i]
	out := make([]cube.Pos, 0, len(c.Inputs)+len(c.Outputs)+len(c.Sides))
	out = append(out, c.Inputs...)
	out = append(out, c.Outputs...)
	return append(out, c.Sides...)
}
