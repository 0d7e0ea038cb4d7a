package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/store"
)

// RunsOptions holds flags for the runs commands.
type RunsOptions struct {
	*RootOptions
	Database string
	Limit    int
	Diffs    bool
}

// RunDetail is a journaled run with its diff log.
type RunDetail struct {
	store.Run
	Diffs []recorder.Diff `json:"diffs,omitempty"`
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run journal",
		Long: `Inspect runs journaled by simulate --db or serve --db.

Exit codes:
  0 - Success
  1 - Run not found
  2 - Command error (database not found, etc.)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	list := &cobra.Command{
		Use:   "list",
		Short: "List journaled runs, most recent first",
		Example: `  redstonesim runs list --db ./runs.db
  redstonesim runs list --db ./runs.db --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(opts, cmd)
		},
	}
	list.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "show at most this many runs (0 = all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one journaled run",
		Example: `  redstonesim runs show --db ./runs.db 0192f0c4-...
  redstonesim runs show --db ./runs.db 0192f0c4-... --diffs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(opts, args[0], cmd)
		},
	}
	show.Flags().BoolVar(&opts.Diffs, "diffs", false, "include the diff log")

	cmd.AddCommand(list, show)
	return cmd
}

func openJournal(formatter *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runRunsList(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openJournal(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd), opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %s %-6s  %-9s  %4d ticks  %5d changes\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Edition, r.Version,
			r.Terminated, r.Stats.TicksSimulated, r.Stats.Changes)
	}
	return nil
}

func runRunsShow(opts *RunsOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	st, err := openJournal(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), map[string]string{"id": id})
		return WrapExitError(ExitFailure, "run not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	detail := RunDetail{Run: run}
	if opts.Diffs {
		detail.Diffs, err = st.ReadDiffs(ctx, id)
		if err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read diffs", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(detail)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:        %s\n", run.ID)
	fmt.Fprintf(w, "Created:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(w, "Ruleset:    %s %s\n", run.Edition, run.Version)
	fmt.Fprintf(w, "Ticks:      %d requested, %d simulated (early exit: %t)\n",
		run.TicksRequested, run.Stats.TicksSimulated, run.EarlyExit)
	fmt.Fprintf(w, "Terminated: %s\n", run.Terminated)
	fmt.Fprintf(w, "Blocks:     %d (%d edits applied)\n", run.Stats.Blocks, run.Stats.EditsApplied)
	fmt.Fprintf(w, "Changes:    %d\n", run.Stats.Changes)
	fmt.Fprintf(w, "Request:    %s\n", run.RequestDigest)
	fmt.Fprintf(w, "Diffs:      %s\n", run.DiffDigest)
	fmt.Fprintf(w, "Engine:     %s\n", run.EngineVersion)
	printWarnings(w, run.Warnings)
	if opts.Diffs {
		fmt.Fprintln(w)
		printDiffs(w, detail.Diffs)
	}
	return nil
}
