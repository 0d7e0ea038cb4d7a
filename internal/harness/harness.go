package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/redstonesim/internal/api"
	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/testutil"
)

// ClockStep is how far the deterministic clock advances per reading.
const ClockStep = time.Millisecond

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and discarded logs.
type Harness struct {
	rules   *quirks.Table
	workers int
	logger  *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithRules resolves policies from t instead of the embedded rulesets.
func WithRules(t *quirks.Table) Option {
	return func(h *Harness) { h.rules = t }
}

// WithWorkers sets the derivation worker count for every run.
func WithWorkers(n int) Option {
	return func(h *Harness) { h.workers = n }
}

// WithLogger routes simulator logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		workers: 1,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with the embedded rulesets.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and evaluates its expectations.
//
// A rejected request is a result, not an error: it fails the scenario unless
// expect.error names its code. Errors are returned only when the scenario
// could not be executed at all.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	raw, err := scenario.RequestJSON()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	clock := testutil.NewDeterministicClock(ClockStep)
	svc := api.New(h.rules,
		sim.WithWorkers(h.workers),
		sim.WithClock(clock.Now),
		sim.WithLogger(h.logger),
	)

	result := NewResult()
	req, res, err := svc.Run(ctx, raw)
	if err != nil {
		var se *simerr.Error
		if !errors.As(err, &se) {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.Rejected = se
	} else {
		result.Run = res
		result.setInitial(req.Blocks)
	}

	for _, msg := range checkExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	if result.Rejected == nil {
		for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
			result.AddError(msg)
		}
	}
	return result, nil
}

// checkExpect compares the run-level outcome with the expect clause.
func checkExpect(r *Result, e *ExpectClause) []string {
	if e == nil {
		e = &ExpectClause{}
	}

	if r.Rejected != nil {
		if e.Error == "" {
			return []string{fmt.Sprintf("request rejected: %v", r.Rejected)}
		}
		if string(r.Rejected.Code) != e.Error {
			return []string{fmt.Sprintf("expected error %s, got %v", e.Error, r.Rejected)}
		}
		return nil
	}
	if e.Error != "" {
		return []string{fmt.Sprintf("expected error %s, but the request was accepted", e.Error)}
	}

	var errs []string
	if e.Terminated != "" && r.Run.Terminated.String() != e.Terminated {
		errs = append(errs, fmt.Sprintf("expected run to end %s, got %s", e.Terminated, r.Run.Terminated))
	}
	if e.TicksSimulated != nil && r.Run.Stats.TicksSimulated != *e.TicksSimulated {
		errs = append(errs, fmt.Sprintf("expected %d ticks simulated, got %d",
			*e.TicksSimulated, r.Run.Stats.TicksSimulated))
	}
	if e.Warnings != nil {
		got := warningCodes(r.Run.Warnings)
		if fmt.Sprint(got) != fmt.Sprint(e.Warnings) {
			errs = append(errs, fmt.Sprintf("expected warnings %v, got %v", e.Warnings, got))
		}
	}
	return errs
}

func warningCodes(warnings []*simerr.Error) []string {
	codes := make([]string, len(warnings))
	for i, w := range warnings {
		codes[i] = string(w.Code)
	}
	return codes
}
