package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock(time.Second).Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func quiet() sim.Option {
	return sim.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// runCircuit simulates c and returns the request and result for journaling.
func runCircuit(t *testing.T, c *testutil.Circuit, ticks int) (sim.Request, *sim.Result) {
	t.Helper()
	req := sim.Request{
		Ticks:     ticks,
		EarlyExit: true,
		Blocks:    c.Blocks(),
		Edition:   "java",
		Version:   "1.21",
	}
	res, err := sim.Simulate(context.Background(), req, quiet())
	if err != nil {
		t.Fatalf("Simulate() failed: %v", err)
	}
	return req, res
}

func simulate(req sim.Request) (*sim.Result, error) {
	return sim.Simulate(context.Background(), req, quiet())
}
