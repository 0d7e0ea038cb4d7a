package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/redstonesim/internal/api"
	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/store"
	"github.com/roach88/redstonesim/internal/transport/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string
	Rules    string
	Workers  int
	MaxCoord int
	MaxBody  int64

	// Listener overrides Addr (for testing).
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator over HTTP and websocket",
		Long: `Serve the simulate and connections operations over HTTP.

Endpoints:
  POST /v1/simulate     request document in, response document out
  POST /v1/connections  connections request in, connections response out
  GET  /v1/stream       websocket: one request in, one message per diff out
  GET  /v1/runs         journaled runs (with --db)
  GET  /v1/runs/{id}    one journaled run and its diff log (with --db)
  GET  /healthz         liveness

Each request runs on its own engine. With --db every successful simulate
call is journaled and its run ID returned in the X-Run-Id header. The
server shuts down gracefully on SIGINT or SIGTERM.

Example:
  redstonesim serve --addr :8080
  redstonesim serve --addr 127.0.0.1:9000 --db ./runs.db --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal simulate calls to this SQLite database")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "ruleset table YAML (default: embedded)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "derivation workers per tick")
	cmd.Flags().IntVar(&opts.MaxCoord, "max-coord", 0, "reject coordinates beyond this absolute value (0 = unbounded)")
	cmd.Flags().Int64Var(&opts.MaxBody, "max-body", httpapi.DefaultMaxBodyBytes, "largest accepted request in bytes")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.Logger(cmd.ErrOrStderr())

	rules, err := loadRules(opts.Rules)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	cfg := httpapi.Config{
		Service: api.New(rules,
			sim.WithWorkers(opts.Workers),
			sim.WithBounds(sim.Bounds{Limit: opts.MaxCoord}),
			sim.WithLogger(logger)),
		Logger:       logger,
		MaxBodyBytes: opts.MaxBody,
	}

	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		cfg.Journal = st
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", opts.Addr)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to listen on %s", opts.Addr), err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())
	if err := httpapi.New(cfg).Serve(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
