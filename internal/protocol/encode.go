package protocol

import (
	"errors"

	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/topology"
)

// ErrCodeInternal is reported for failures that are not simulator errors,
// such as cancellation or I/O.
const ErrCodeInternal = "INTERNAL_ERROR"

// NewSimulateResponse builds the response document for res.
func NewSimulateResponse(res *sim.Result) SimulateResponse {
	out := SimulateResponse{
		Diffs:      res.Diffs,
		Stats:      res.Stats,
		Terminated: res.Terminated.String(),
		Digest:     res.Digest,
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, Warning{Code: string(w.Code), Message: w.Message})
	}
	return out
}

// NewConnectionsResponse builds the response document for c.
func NewConnectionsResponse(c topology.Connections) ConnectionsResponse {
	out := ConnectionsResponse{
		Inputs:  coordinates(c.Inputs),
		Outputs: coordinates(c.Outputs),
	}
	if len(c.Sides) > 0 {
		out.Sides = coordinates(c.Sides)
	}
	if len(c.Quasi) > 0 {
		out.Quasi = coordinates(c.Quasi)
	}
	return out
}

// NewErrorResponse describes err. Simulator errors keep their code and
// position; anything else is reported as an internal error.
func NewErrorResponse(err error) ErrorResponse {
	var se *simerr.Error
	if !errors.As(err, &se) {
		return ErrorResponse{Error: ErrorBody{Code: ErrCodeInternal, Message: err.Error()}}
	}
	body := ErrorBody{Code: string(se.Code), Message: se.Message, Details: se.Details}
	if se.Pos != nil {
		c := coordinate(*se.Pos)
		body.Pos = &c
	}
	return ErrorResponse{Error: body}
}
