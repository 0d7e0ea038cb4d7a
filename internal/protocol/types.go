package protocol

import (
	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/recorder"
)

// Simulation selects the ruleset. Both fields are optional.
type Simulation struct {
	Edition string `json:"edition,omitempty"`
	Version string `json:"version,omitempty"`
}

// BlockJSON is a placed block as it appears on the wire. Kind-specific
// fields are pointers so that omitted and zero can be told apart.
type BlockJSON struct {
	X              int     `json:"x"`
	Y              int     `json:"y"`
	Z              int     `json:"z"`
	Type           string  `json:"type"`
	Facing         *string `json:"facing,omitempty"`
	Powered        *bool   `json:"powered,omitempty"`
	Pressed        *bool   `json:"pressed,omitempty"`
	TicksRemaining *int    `json:"ticks_remaining,omitempty"`
	Power          *int    `json:"power,omitempty"`
	On             *bool   `json:"on,omitempty"`
	Delay          *int    `json:"delay,omitempty"`
	Locked         *bool   `json:"locked,omitempty"`
	Output         *int    `json:"output,omitempty"`
	Mode           *string `json:"mode,omitempty"`
	Lit            *bool   `json:"lit,omitempty"`
	Extended       *bool   `json:"extended,omitempty"`
	Enabled        *bool   `json:"enabled,omitempty"`
	TickAt         *int    `json:"tick_at,omitempty"`
}

// WorldJSON is the initial layout plus scheduled edits.
type WorldJSON struct {
	Blocks []BlockJSON `json:"blocks"`
}

// SimulateRequest is the request document of the simulate operation.
type SimulateRequest struct {
	Ticks      int         `json:"ticks"`
	EarlyExit  *bool       `json:"early_exit,omitempty"`
	World      WorldJSON   `json:"world"`
	Simulation *Simulation `json:"simulation,omitempty"`
}

// ConnectionsRequest is a single placed block, optionally with the ruleset
// whose capabilities apply.
type ConnectionsRequest struct {
	BlockJSON
	Simulation *Simulation `json:"simulation,omitempty"`
}

// Coordinate is a position on the wire.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Warning is a non-fatal condition reported alongside a result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SimulateResponse is the response document of the simulate operation.
type SimulateResponse struct {
	Diffs      []recorder.Diff `json:"diffs"`
	Stats      recorder.Stats  `json:"stats"`
	Terminated string          `json:"terminated"`
	Warnings   []Warning       `json:"warnings,omitempty"`
	Digest     string          `json:"digest"`
}

// ConnectionsResponse is the response document of the connections
// operation.
type ConnectionsResponse struct {
	Inputs  []Coordinate `json:"inputs"`
	Outputs []Coordinate `json:"outputs"`
	Sides   []Coordinate `json:"sides,omitempty"`
	Quasi   []Coordinate `json:"quasi,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Pos     *Coordinate       `json:"pos,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func coordinate(p cube.Pos) Coordinate {
	return Coordinate{X: p[0], Y: p[1], Z: p[2]}
}

func coordinates(ps []cube.Pos) []Coordinate {
	out := make([]Coordinate, 0, len(ps))
	for _, p := range ps {
		out = append(out, coordinate(p))
	}
	return out
}
