package engine

import (
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/simerr"
)

// Edit is an externally supplied placement that takes effect at Tick.
type Edit struct {
	Tick  int
	Pos   cube.Pos
	Block block.Block
}

// EditQueue holds pending edits ordered by (tick, position).
//
// The queue is owned by one engine and is not safe for concurrent use. Edits
// are consumed strictly in tick order; popping tick t discards nothing for
// later ticks.
type EditQueue struct {
	edits []Edit
	head  int
}

// NewEditQueue sorts edits and rejects duplicates and edits before tick 1.
func NewEditQueue(edits []Edit) (*EditQueue, error) {
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, compareEdits)

	for i, e := range sorted {
		if e.Tick < 1 {
			return nil, simerr.ValidationAt(e.Pos, "edit tick_at %d must be >= 1", e.Tick)
		}
		if i > 0 && compareEdits(sorted[i-1], e) == 0 {
			return nil, simerr.ValidationAt(e.Pos, "duplicate edit for tick %d", e.Tick)
		}
	}
	return &EditQueue{edits: sorted}, nil
}

func compareEdits(a, b Edit) int {
	if a.Tick != b.Tick {
		if a.Tick < b.Tick {
			return -1
		}
		return 1
	}
	return block.ComparePos(a.Pos, b.Pos)
}

// PopDue removes and returns every edit scheduled at or before tick, in
// position order.
func (q *EditQueue) PopDue(tick int) []Edit {
	start := q.head
	for q.head < len(q.edits) && q.edits[q.head].Tick <= tick {
		q.head++
	}
	return q.edits[start:q.head]
}

// PendingAfter reports whether any edit is scheduled after tick.
func (q *EditQueue) PendingAfter(tick int) bool {
	for _, e := range q.edits[q.head:] {
		if e.Tick > tick {
			return true
		}
	}
	return false
}

// Len returns the number of edits not yet popped.
func (q *EditQueue) Len() int {
	return len(q.edits) - q.head
}
