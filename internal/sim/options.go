package sim

import (
	"log/slog"
	"time"

	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/recorder"
)

// Bounds is a caller-imposed limit on coordinates. The engine itself imposes
// none.
type Bounds struct {
	// Limit is the largest allowed absolute value of any coordinate. Zero
	// means unbounded.
	Limit int
}

type config struct {
	workers int
	bounds  Bounds
	rules   *quirks.Table
	clock   func() time.Time
	sink    func(recorder.Diff)
	logger  *slog.Logger
}

// Option configures a simulation run.
type Option func(*config)

// WithWorkers sets the derivation worker count.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithBounds rejects layouts with coordinates outside b.
func WithBounds(b Bounds) Option {
	return func(c *config) {
		c.bounds = b
	}
}

// WithRules replaces the embedded ruleset table.
func WithRules(t *quirks.Table) Option {
	return func(c *config) {
		if t != nil {
			c.rules = t
		}
	}
}

// WithClock sets the wall clock used for elapsed_ms.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.clock = now
	}
}

// WithSink streams each diff as it is recorded.
func WithSink(fn func(recorder.Diff)) Option {
	return func(c *config) {
		c.sink = fn
	}
}

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		workers: 1,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rules == nil {
		c.rules = quirks.Default()
	}
	return c
}
