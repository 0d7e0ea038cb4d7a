package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/redstonesim/internal/api"
	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Input     string
	Output    string
	Ticks     int
	Edition   string
	Version   string
	EarlyExit bool
	Workers   int
	Rules     string // ruleset YAML replacing the embedded table
	MaxCoord  int    // largest absolute coordinate, 0 = unbounded
	Database  string // journal the run when set
}

// SimulateResult is the data payload of the simulate command.
type SimulateResult struct {
	Terminated string             `json:"terminated"`
	Stats      recorder.Stats     `json:"stats"`
	Digest     string             `json:"digest"`
	Warnings   []protocol.Warning `json:"warnings,omitempty"`
	RunID      string             `json:"run_id,omitempty"`
	Output     string             `json:"output,omitempty"`
	Diffs      []recorder.Diff    `json:"diffs,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a circuit for a number of ticks",
		Long: `Simulate a request document and report the diff log.

The request is read from --in (or stdin). Flags override the matching
request fields only when given. With --out the response document is
written to that file; paths ending in .zst are zstd compressed, on input
and output alike. With --db the run is journaled for later replay.

Exit codes:
  0 - Run completed
  1 - Request rejected (parse, validation or edition error)
  2 - Command error (unreadable input, bad rules file, etc.)

Examples:
  redstonesim simulate --in circuit.json
  redstonesim simulate --in circuit.json.zst --out result.json.zst
  redstonesim simulate --in circuit.json --ticks 40 --edition bedrock
  redstonesim simulate --in circuit.json --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "in", "i", "-", "request document (- for stdin)")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the response document to this file")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "tick budget (overrides request)")
	cmd.Flags().StringVar(&opts.Edition, "edition", "", "ruleset edition (overrides request)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "ruleset version (overrides request)")
	cmd.Flags().BoolVar(&opts.EarlyExit, "early-exit", false, "stop on the first settled tick (overrides request)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "derivation workers per tick")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "ruleset table YAML (default: embedded)")
	cmd.Flags().IntVar(&opts.MaxCoord, "max-coord", 0, "reject coordinates beyond this absolute value (0 = unbounded)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run to this SQLite database")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	raw, err := readInput(opts.Input, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read request", err)
	}

	req, err := protocol.DecodeSimulate(raw)
	if err != nil {
		return requestFailed(formatter, err)
	}
	applyOverrides(cmd, opts, &req)

	rules, err := loadRules(opts.Rules)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	svc := api.New(rules,
		sim.WithWorkers(opts.Workers),
		sim.WithBounds(sim.Bounds{Limit: opts.MaxCoord}),
		sim.WithLogger(logger))
	res, err := svc.RunRequest(ctx, req)
	if err != nil {
		return requestFailed(formatter, err)
	}

	resp := protocol.NewSimulateResponse(res)
	result := SimulateResult{
		Terminated: resp.Terminated,
		Stats:      resp.Stats,
		Digest:     resp.Digest,
		Warnings:   resp.Warnings,
	}

	if opts.Database != "" {
		id, err := journalRun(ctx, opts.Database, req, res)
		if err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to journal run", err)
		}
		result.RunID = id
		logger.Debug("run journaled", "id", id, "db", opts.Database)
	}

	if opts.Output != "" {
		data, err := json.Marshal(resp)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode response", err)
		}
		if err := writeOutput(opts.Output, data); err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write response", err)
		}
		result.Output = opts.Output
	} else {
		result.Diffs = resp.Diffs
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	printSimulateText(cmd, result)
	return nil
}

// applyOverrides copies explicitly set flags over the request fields.
func applyOverrides(cmd *cobra.Command, opts *SimulateOptions, req *sim.Request) {
	flags := cmd.Flags()
	if flags.Changed("ticks") {
		req.Ticks = opts.Ticks
	}
	if flags.Changed("edition") {
		req.Edition = opts.Edition
	}
	if flags.Changed("version") {
		req.Version = opts.Version
	}
	if flags.Changed("early-exit") {
		req.EarlyExit = opts.EarlyExit
	}
}

// loadRules returns the ruleset table at path, or nil for the embedded one.
func loadRules(path string) (*quirks.Table, error) {
	if path == "" {
		return nil, nil
	}
	return quirks.Load(path)
}

func journalRun(ctx context.Context, path string, req sim.Request, res *sim.Result) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.WriteRun(ctx, req, res)
}

func printSimulateText(cmd *cobra.Command, r SimulateResult) {
	w := cmd.OutOrStdout()
	printDiffs(w, r.Diffs)
	printWarnings(w, r.Warnings)
	fmt.Fprintf(w, "%s after %d ticks: %d changes, %d blocks\n",
		r.Terminated, r.Stats.TicksSimulated, r.Stats.Changes, r.Stats.Blocks)
	fmt.Fprintf(w, "digest %s\n", r.Digest)
	if r.Output != "" {
		fmt.Fprintf(w, "response written to %s\n", r.Output)
	}
	if r.RunID != "" {
		fmt.Fprintf(w, "run %s\n", r.RunID)
	}
}

// commandContext returns the command context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
