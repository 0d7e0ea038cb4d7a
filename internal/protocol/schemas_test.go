package protocol

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/testutil"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", name))
	require.NoError(t, err, "compile %s", name)
	return s
}

// asDocument round-trips v through JSON so the validator sees plain values.
func asDocument(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var doc any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestSchemas_RequestFixture(t *testing.T) {
	s := compileSchema(t, "simulate-request.schema.json")

	var doc any
	require.NoError(t, json.Unmarshal(readFixture(t, "lever_dust_lamp.json"), &doc))
	require.NoError(t, s.Validate(doc))
}

func TestSchemas_SimulateResponse(t *testing.T) {
	s := compileSchema(t, "simulate-response.schema.json")
	quiet := sim.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	circuits := map[string]*testutil.Circuit{
		"lever dust lamp": testutil.LeverDustLamp(),
		"dust chain":      testutil.DustChain(5),
		"every kind": testutil.NewCircuit().
			Place(cube.Pos{-1, 0, 0}, block.Lever(cube.FaceEast, true)).
			Place(cube.Pos{0, 0, 0}, block.Repeater(cube.FaceEast, 2)).
			Place(cube.Pos{1, 0, 0}, block.Comparator(cube.FaceEast, block.ModeSubtract)).
			Place(cube.Pos{2, 0, 0}, block.Piston(cube.FaceUp, false)).
			Place(cube.Pos{0, 0, 2}, block.Button(cube.FaceNorth, 2)).
			Place(cube.Pos{0, 0, 1}, block.Hopper(cube.FaceDown, true)).
			Place(cube.Pos{5, 0, 0}, block.Torch(cube.FaceDown, false)).
			Place(cube.Pos{6, 0, 0}, block.Lamp(false)).
			EditAt(3, cube.Pos{6, 0, 0}, block.Air()),
	}
	for name, c := range circuits {
		t.Run(name, func(t *testing.T) {
			req := sim.Request{Ticks: 20, EarlyExit: true, Blocks: c.Blocks()}
			res, err := sim.Simulate(context.Background(), req, quiet)
			require.NoError(t, err)
			require.NoError(t, s.Validate(asDocument(t, NewSimulateResponse(res))))
		})
	}
}

func TestSchemas_ConnectionsResponse(t *testing.T) {
	s := compileSchema(t, "connections-response.schema.json")
	policy, _, err := quirks.Default().Resolve("java", "1.21")
	require.NoError(t, err)

	for _, kind := range block.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			b := block.Block{Kind: kind, Facing: cube.FaceNorth, Delay: 1}
			c, err := sim.Connections(cube.Pos{3, 4, 5}, b, policy)
			require.NoError(t, err)
			require.NoError(t, s.Validate(asDocument(t, NewConnectionsResponse(c))))
		})
	}
}

func TestSchemas_ErrorResponse(t *testing.T) {
	s := compileSchema(t, "error.schema.json")

	_, err := DecodeSimulate([]byte(`{"ticks": 1, "world": {"blocks": [{"x": 0, "y": 0, "z": 0, "type": "observer"}]}}`))
	require.Error(t, err)
	require.NoError(t, s.Validate(asDocument(t, NewErrorResponse(err))))

	unsupported := simerr.UnsupportedEdition("legacy", []string{"bedrock", "java"})
	require.NoError(t, s.Validate(asDocument(t, NewErrorResponse(unsupported))))
}
