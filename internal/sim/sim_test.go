package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redstonesim/internal/block"
	"github.com/roach88/redstonesim/internal/engine"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/testutil"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupRequest(c *testutil.Circuit, ticks int) Request {
	return Request{
		Ticks:     ticks,
		EarlyExit: true,
		Blocks:    c.Blocks(),
		Edition:   "java",
		Version:   "1.21",
	}
}

func TestSimulate_LeverDustLamp(t *testing.T) {
	clock := testutil.NewDeterministicClock(3 * time.Millisecond)
	res, err := Simulate(context.Background(), setupRequest(testutil.LeverDustLamp(), 20),
		quiet(), WithClock(clock.Now))
	require.NoError(t, err)

	assert.Equal(t, engine.StateSettled, res.Terminated)
	require.Len(t, res.Diffs, 2)
	assert.Equal(t, 2, res.Diffs[0].Tick)
	assert.Equal(t, 3, res.Diffs[1].Tick)

	assert.Equal(t, recorder.Stats{
		TicksSimulated: 4,
		ElapsedMs:      3,
		Blocks:         3,
		EditsApplied:   1,
		Changes:        3,
	}, res.Stats)

	require.Len(t, res.Final, 3)
	assert.Equal(t, cube.Pos{0, 0, -1}, res.Final[0].Pos)
	assert.True(t, res.Final[0].State.On)
	assert.Len(t, res.Digest, 64)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "1.21", res.Policy.Version)
}

func TestSimulate_BudgetExhausted(t *testing.T) {
	res, err := Simulate(context.Background(), setupRequest(testutil.LeverDustLamp(), 2), quiet())
	require.NoError(t, err)

	assert.Equal(t, engine.StateExhausted, res.Terminated)
	assert.Equal(t, 2, res.Stats.TicksSimulated)
	require.Len(t, res.Diffs, 1)
	assert.Equal(t, 2, res.Diffs[0].Tick)
}

func TestSimulate_ZeroTicks(t *testing.T) {
	res, err := Simulate(context.Background(), setupRequest(testutil.LeverDustLamp(), 0), quiet())
	require.NoError(t, err)

	assert.Equal(t, engine.StateExhausted, res.Terminated)
	assert.NotNil(t, res.Diffs)
	assert.Empty(t, res.Diffs)
	assert.Equal(t, 0, res.Stats.TicksSimulated)
}

func TestSimulate_WithoutEarlyExitRunsFullBudget(t *testing.T) {
	req := setupRequest(testutil.LeverDustLamp(), 10)
	req.EarlyExit = false

	res, err := Simulate(context.Background(), req, quiet())
	require.NoError(t, err)

	assert.Equal(t, 10, res.Stats.TicksSimulated)
	assert.Equal(t, engine.StateSettled, res.Terminated, "a settled run stays settled")
	assert.Len(t, res.Diffs, 2)
}

func TestSimulate_OscillatorExhausts(t *testing.T) {
	c := testutil.NewCircuit().
		Place(cube.Pos{0, 0, 0}, block.Torch(cube.FaceWest, true)).
		Place(cube.Pos{0, 0, 1}, block.Dust(0)).
		Place(cube.Pos{-1, 0, 1}, block.Dust(0)).
		Place(cube.Pos{-1, 0, 0}, block.Dust(0))

	res, err := Simulate(context.Background(), setupRequest(c, 30), quiet())
	require.NoError(t, err)

	assert.Equal(t, engine.StateExhausted, res.Terminated)
	assert.Equal(t, 30, res.Stats.TicksSimulated)
}

func TestSimulate_Deterministic(t *testing.T) {
	req := setupRequest(testutil.DustChain(20), 40)

	first, err := Simulate(context.Background(), req, quiet())
	require.NoError(t, err)
	second, err := Simulate(context.Background(), req, quiet(), WithWorkers(4))
	require.NoError(t, err)

	assert.Equal(t, first.Diffs, second.Diffs)
	assert.Equal(t, first.Digest, second.Digest)
}

func TestSimulate_SinkSeesEveryDiff(t *testing.T) {
	var streamed []recorder.Diff
	res, err := Simulate(context.Background(), setupRequest(testutil.LeverDustLamp(), 20),
		quiet(), WithSink(func(d recorder.Diff) { streamed = append(streamed, d) }))
	require.NoError(t, err)

	assert.Equal(t, res.Diffs, streamed)
}

func TestSimulate_VersionWarning(t *testing.T) {
	req := setupRequest(testutil.LeverDustLamp(), 20)
	req.Version = "1.18"

	res, err := Simulate(context.Background(), req, quiet())
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.True(t, simerr.IsWarning(res.Warnings[0]))
	assert.Equal(t, "1.16", res.Policy.Version)
}

func TestSimulate_UnsupportedEdition(t *testing.T) {
	req := setupRequest(testutil.LeverDustLamp(), 20)
	req.Edition = "legacy"

	_, err := Simulate(context.Background(), req, quiet())
	require.Error(t, err)
	assert.True(t, simerr.IsUnsupportedEdition(err))
}

func TestSimulate_ValidationErrors(t *testing.T) {
	origin := cube.Pos{0, 0, 0}
	tests := []struct {
		name   string
		blocks []block.Placed
		ticks  int
		opts   []Option
	}{
		{
			name:  "negative ticks",
			ticks: -1,
		},
		{
			name: "duplicate initial block",
			blocks: []block.Placed{
				{Pos: origin, Block: block.Dust(0)},
				{Pos: origin, Block: block.Lamp(false)},
			},
		},
		{
			name: "duplicate edit",
			blocks: []block.Placed{
				{Pos: origin, Block: block.Dust(0), TickAt: 3},
				{Pos: origin, Block: block.Lamp(false), TickAt: 3},
			},
		},
		{
			name:   "air in initial layout",
			blocks: []block.Placed{{Pos: origin, Block: block.Air()}},
		},
		{
			name:   "negative tick_at",
			blocks: []block.Placed{{Pos: origin, Block: block.Dust(0), TickAt: -2}},
		},
		{
			name:   "dust power out of range",
			blocks: []block.Placed{{Pos: origin, Block: block.Block{Kind: block.KindDust, Power: 16}}},
		},
		{
			name:   "vertical repeater",
			blocks: []block.Placed{{Pos: origin, Block: block.Repeater(cube.FaceUp, 1)}},
		},
		{
			name:   "outside bounds",
			blocks: []block.Placed{{Pos: cube.Pos{0, 300, 0}, Block: block.Lamp(false)}},
			opts:   []Option{WithBounds(Bounds{Limit: 256})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Ticks: tt.ticks, Blocks: tt.blocks, Edition: "java"}
			_, err := Simulate(context.Background(), req, append(tt.opts, quiet())...)
			require.Error(t, err)
			assert.True(t, simerr.IsValidation(err), "got %v", err)
		})
	}
}

func TestSimulate_SamePositionDifferentTicksAllowed(t *testing.T) {
	origin := cube.Pos{0, 0, 0}
	req := Request{
		Ticks:     10,
		EarlyExit: true,
		Blocks: []block.Placed{
			{Pos: origin, Block: block.Lamp(false)},
			{Pos: origin, Block: block.Dust(0), TickAt: 2},
			{Pos: origin, Block: block.Air(), TickAt: 4},
		},
	}
	res, err := Simulate(context.Background(), req, quiet())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Stats.Blocks)
	assert.Equal(t, 2, res.Stats.EditsApplied)
	assert.Empty(t, res.Final)
}

func TestSimulate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Simulate(ctx, setupRequest(testutil.LeverDustLamp(), 20), quiet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConnections(t *testing.T) {
	java, _, err := newConfig(nil).rules.Resolve("java", "1.21")
	require.NoError(t, err)
	bedrock, _, err := newConfig(nil).rules.Resolve("bedrock", "1.21")
	require.NoError(t, err)

	lever := block.Lever(cube.FaceNorth, false)
	pos := cube.Pos{0, 0, 1}

	c, err := Connections(pos, lever, java)
	require.NoError(t, err)
	assert.Equal(t, []cube.Pos{{0, -1, 0}, {0, 0, 0}}, c.Outputs)
	assert.Equal(t, []cube.Pos{{0, -1, 0}}, c.Quasi)

	c, err = Connections(pos, lever, bedrock)
	require.NoError(t, err)
	assert.Equal(t, []cube.Pos{{0, 0, 0}}, c.Outputs)
	assert.Empty(t, c.Quasi)
}

func TestConnections_Rejects(t *testing.T) {
	policy, _, err := newConfig(nil).rules.Resolve("", "")
	require.NoError(t, err)

	_, err = Connections(cube.Pos{}, block.Air(), policy)
	assert.True(t, simerr.IsValidation(err))

	_, err = Connections(cube.Pos{}, block.Repeater(cube.FaceDown, 2), policy)
	assert.True(t, simerr.IsValidation(err))
}
