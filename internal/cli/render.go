package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/recorder"
)

// printDiffs renders a diff log, one line per change:
//
//	tick 2: (0,0,-1) lever facing=down powered=true
func printDiffs(w io.Writer, diffs []recorder.Diff) {
	for _, d := range diffs {
		for _, c := range d.Changes {
			fmt.Fprintf(w, "tick %d: %s\n", d.Tick, formatChange(c))
		}
	}
}

func printWarnings(w io.Writer, warnings []protocol.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning [%s]: %s\n", warn.Code, warn.Message)
	}
}

func formatPos(p cube.Pos) string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

func formatCoordinate(c protocol.Coordinate) string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

func formatCoordinates(cs []protocol.Coordinate) string {
	if len(cs) == 0 {
		return "-"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = formatCoordinate(c)
	}
	return strings.Join(parts, " ")
}

// formatChange renders the wire fields of a change other than its position
// and type, in key order.
func formatChange(c recorder.Change) string {
	var b strings.Builder
	b.WriteString(formatPos(c.Pos))
	b.WriteByte(' ')
	b.WriteString(c.State.Kind.String())

	raw, err := json.Marshal(c)
	if err != nil {
		return b.String()
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return b.String()
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		switch k {
		case "x", "y", "z", "type":
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}
