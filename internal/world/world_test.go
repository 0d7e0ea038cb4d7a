package world

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redstonesim/internal/block"
)

func setupWorld(t *testing.T) *World {
	t.Helper()
	w := New()
	w.Set(cube.Pos{0, 0, 1}, block.Lever(cube.FaceNorth, false))
	w.Set(cube.Pos{0, 0, -1}, block.Lamp(false))
	w.Set(cube.Pos{0, 0, 0}, block.Dust(0))
	return w
}

func TestWorld_OrderedPositions(t *testing.T) {
	w := setupWorld(t)

	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []cube.Pos{{0, 0, -1}, {0, 0, 0}, {0, 0, 1}}, w.Positions())

	var seen []block.Kind
	w.Each(func(_ cube.Pos, b block.Block) bool {
		seen = append(seen, b.Kind)
		return true
	})
	assert.Equal(t, []block.Kind{block.KindLamp, block.KindDust, block.KindLever}, seen)
}

func TestWorld_SetReplaces(t *testing.T) {
	w := setupWorld(t)
	rev := w.Revision()

	w.Set(cube.Pos{0, 0, 1}, block.Lever(cube.FaceNorth, true))

	b, ok := w.Get(cube.Pos{0, 0, 1})
	require.True(t, ok)
	assert.True(t, b.Powered)
	assert.Equal(t, 3, w.Len())
	assert.Greater(t, w.Revision(), rev)
}

func TestWorld_SetAirRemoves(t *testing.T) {
	w := setupWorld(t)

	w.Set(cube.Pos{0, 0, 0}, block.Air())

	assert.False(t, w.Occupied(cube.Pos{0, 0, 0}))
	assert.Equal(t, []cube.Pos{{0, 0, -1}, {0, 0, 1}}, w.Positions())

	i, ok := w.Slot(cube.Pos{0, 0, 1})
	require.True(t, ok)
	pos, b := w.At(i)
	assert.Equal(t, cube.Pos{0, 0, 1}, pos)
	assert.Equal(t, block.KindLever, b.Kind)

	assert.False(t, w.Remove(cube.Pos{9, 9, 9}))
}

func TestWorld_SetSlotKeepsRevision(t *testing.T) {
	w := setupWorld(t)
	rev := w.Revision()

	i, ok := w.Slot(cube.Pos{0, 0, 0})
	require.True(t, ok)
	w.SetSlot(i, block.Dust(15))

	b, _ := w.Get(cube.Pos{0, 0, 0})
	assert.Equal(t, 15, b.Power)
	assert.Equal(t, rev, w.Revision())
}

func TestWorld_CloneIsIndependent(t *testing.T) {
	w := setupWorld(t)
	c := w.Clone()

	c.Set(cube.Pos{0, 0, 0}, block.Dust(9))
	c.Set(cube.Pos{5, 0, 0}, block.Lamp(true))

	orig, _ := w.Get(cube.Pos{0, 0, 0})
	assert.Equal(t, 0, orig.Power)
	assert.False(t, w.Occupied(cube.Pos{5, 0, 0}))
	assert.Equal(t, 4, c.Len())
}

func TestWorld_Neighbours(t *testing.T) {
	w := setupWorld(t)
	assert.ElementsMatch(t, []cube.Pos{{0, 0, -1}, {0, 0, 1}}, w.Neighbours(cube.Pos{0, 0, 0}))
	assert.Empty(t, w.Neighbours(cube.Pos{10, 10, 10}))
}

func TestWorld_Components(t *testing.T) {
	w := setupWorld(t)
	w.Set(cube.Pos{10, 0, 0}, block.Dust(0))
	w.Set(cube.Pos{11, 0, 0}, block.Lamp(false))
	w.Set(cube.Pos{50, 0, 0}, block.Lamp(false))

	links := func(i int) []cube.Pos {
		pos, _ := w.At(i)
		out := make([]cube.Pos, 0, 4)
		for _, f := range cube.HorizontalFaces() {
			out = append(out, pos.Side(f))
		}
		return out
	}

	comps := w.Components(links)
	require.Len(t, comps, 3)
	assert.Equal(t, []int{0, 1, 2}, comps[0])
	assert.Equal(t, []int{3, 4}, comps[1])
	assert.Equal(t, []int{5}, comps[2])
}

func TestWorld_ComponentsEmpty(t *testing.T) {
	assert.Empty(t, New().Components(func(int) []cube.Pos { return nil }))
}
