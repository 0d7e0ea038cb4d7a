package world

import (
	"github.com/df-mc/dragonfly/server/block/cube"
)

// LinkFunc returns the positions slot i is wired to. Positions that are not
// occupied are ignored.
type LinkFunc func(i int) []cube.Pos

// Components partitions the slots of w into connected components under links.
// Links are treated as undirected. Components are ordered by their smallest
// slot and each lists its slots in ascending order.
func (w *World) Components(links LinkFunc) [][]int {
	n := len(w.order)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		switch {
		case ra == rb:
		case ra < rb:
			parent[rb] = ra
		default:
			parent[ra] = rb
		}
	}

	for i := 0; i < n; i++ {
		for _, p := range links(i) {
			if j, ok := w.index[p]; ok {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int]int)
	var out [][]int
	for i := 0; i < n; i++ {
		r := find(i)
		k, ok := byRoot[r]
		if !ok {
			k = len(out)
			byRoot[r] = k
			out = append(out, nil)
		}
		out[k] = append(out[k], i)
	}
	return out
}
