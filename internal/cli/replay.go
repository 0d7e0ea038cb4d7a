package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/redstonesim/internal/sim"
	"github.com/roach88/redstonesim/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Rules    string
	Workers  int
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	StoredDigest  string `json:"stored_digest"`
	FreshDigest   string `json:"fresh_digest"`
	Deterministic bool   `json:"deterministic"`
	Divergence    int    `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Re-simulate journaled runs and verify determinism",
		Long: `Re-simulate journaled runs and verify they reproduce their diff logs.

Each run's stored request is simulated again and the fresh diff digest is
compared with the journaled one. A mismatch means the engine or the
ruleset changed since the run was recorded; the first diverging tick is
reported. Without a run ID every journaled run is replayed.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed, or the run does not exist
  2 - Command error (database not found, etc.)

Examples:
  redstonesim replay --db ./runs.db
  redstonesim replay --db ./runs.db 0192f0c4-...
  redstonesim replay --db ./runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runReplay(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "ruleset table YAML (default: embedded)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "derivation workers per tick")

	return cmd
}

func runReplay(opts *ReplayOptions, id string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	st, err := openJournal(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	rules, err := loadRules(opts.Rules)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	var ids []string
	if id != "" {
		ids = []string{id}
	} else {
		runs, err := st.ListRuns(ctx, 0)
		if err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		// Oldest first, the order they were journaled in.
		for i := len(runs) - 1; i >= 0; i-- {
			ids = append(ids, runs[i].ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:        len(ids),
		AllDeterministic: true,
	}

	simOpts := []sim.Option{
		sim.WithRules(rules),
		sim.WithWorkers(opts.Workers),
		sim.WithLogger(logger),
	}
	for _, runID := range ids {
		rr, err := st.Replay(ctx, runID, simOpts...)
		if errors.Is(err, store.ErrRunNotFound) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), map[string]string{"id": runID})
			return WrapExitError(ExitFailure, "run not found", err)
		}
		if err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", runID), err)
		}

		r := ReplayRunResult{
			RunID:         runID,
			StoredDigest:  rr.Run.DiffDigest,
			FreshDigest:   rr.Result.Digest,
			Deterministic: rr.Match,
			Divergence:    rr.Divergence,
		}
		if !r.Deterministic {
			result.AllDeterministic = false
			logger.Warn("replay diverged", "run", runID, "tick", r.Divergence)
		}
		result.Runs = append(result.Runs, r)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.AllDeterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDiverged, Message: "replay produced a different diff log"}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		printReplayText(cmd, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func printReplayText(cmd *cobra.Command, result ReplayResult) {
	w := cmd.OutOrStdout()
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}
	for _, r := range result.Runs {
		if r.Deterministic {
			fmt.Fprintf(w, "✓ %s\n", r.RunID)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.RunID)
		fmt.Fprintf(w, "  diverged at tick %d\n", r.Divergence)
		fmt.Fprintf(w, "  stored: %s\n", r.StoredDigest)
		fmt.Fprintf(w, "  fresh:  %s\n", r.FreshDigest)
	}
	fmt.Fprintln(w)
	if result.AllDeterministic {
		fmt.Fprintf(w, "✓ All %d run(s) deterministic\n", result.TotalRuns)
		return
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
}
