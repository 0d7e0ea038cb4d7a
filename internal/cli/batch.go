package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/redstonesim/internal/api"
	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/sim"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Parallel int
	OutDir   string
	Rules    string
}

// BatchItem is the outcome of one request file.
type BatchItem struct {
	File           string    `json:"file"`
	Terminated     string    `json:"terminated,omitempty"`
	TicksSimulated int       `json:"ticks_simulated,omitempty"`
	Changes        int       `json:"changes,omitempty"`
	Digest         string    `json:"digest,omitempty"`
	Output         string    `json:"output,omitempty"`
	Error          *CLIError `json:"error,omitempty"`
}

// BatchResult is the data payload of the batch command.
type BatchResult struct {
	Runs      []BatchItem `json:"runs"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Total     int         `json:"total"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Simulate every request document in a directory",
		Long: `Simulate every *.json and *.json.zst request in a directory.

Runs are independent and execute in parallel, each on its own engine.
Results are reported in file name order regardless of completion order.
With --out-dir each response document is written next to its name as
<name>.response.json (compressed when the request was).

Exit codes:
  0 - Every request ran
  1 - One or more requests were rejected
  2 - Command error (missing directory, unwritable output, etc.)

Examples:
  redstonesim batch ./requests
  redstonesim batch ./requests --parallel 8 --out-dir ./responses
  redstonesim batch ./requests --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", runtime.GOMAXPROCS(0), "requests simulated at once")
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "write response documents to this directory")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "ruleset table YAML (default: embedded)")

	return cmd
}

func runBatch(opts *BatchOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("request directory not found: %s", dir)
		_ = formatter.Error(ErrCodeCommand, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if opts.Parallel < 1 {
		msg := fmt.Sprintf("--parallel must be at least 1, got %d", opts.Parallel)
		_ = formatter.Error(ErrCodeCommand, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	files, err := findRequestFiles(dir)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list requests", err)
	}

	rules, err := loadRules(opts.Rules)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	svc := api.New(rules, sim.WithLogger(logger))

	items := make([]BatchItem, len(files))
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.SetLimit(opts.Parallel)
	for i, file := range files {
		g.Go(func() error {
			item := BatchItem{File: filepath.Base(file)}
			defer func() { items[i] = item }()

			raw, err := readInput(file, nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			_, res, err := svc.Run(ctx, raw)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				body := protocol.NewErrorResponse(err).Error
				item.Error = &CLIError{Code: body.Code, Message: body.Message}
				logger.Debug("request rejected", "file", item.File, "code", body.Code)
				return nil
			}

			resp := protocol.NewSimulateResponse(res)
			item.Terminated = resp.Terminated
			item.TicksSimulated = resp.Stats.TicksSimulated
			item.Changes = resp.Stats.Changes
			item.Digest = resp.Digest

			if opts.OutDir != "" {
				data, err := json.Marshal(resp)
				if err != nil {
					return fmt.Errorf("encode %s: %w", file, err)
				}
				out := filepath.Join(opts.OutDir, responseName(file))
				if err := writeOutput(out, data); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				item.Output = out
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "batch aborted", err)
	}

	result := BatchResult{Runs: items, Total: len(items)}
	for _, item := range items {
		if item.Error != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printBatchText(cmd, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d request(s) rejected", result.Failed))
	}
	return nil
}

// findRequestFiles lists the request documents directly inside dir, in
// file name order.
func findRequestFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json"+compressedExt) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

// responseName maps circuit.json to circuit.response.json and
// circuit.json.zst to circuit.response.json.zst.
func responseName(file string) string {
	base := filepath.Base(file)
	suffix := ".response.json"
	if isCompressed(base) {
		base = strings.TrimSuffix(base, compressedExt)
		suffix += compressedExt
	}
	return strings.TrimSuffix(base, ".json") + suffix
}

func printBatchText(cmd *cobra.Command, result BatchResult) {
	w := cmd.OutOrStdout()
	if result.Total == 0 {
		fmt.Fprintln(w, "No requests found.")
		return
	}
	for _, item := range result.Runs {
		if item.Error != nil {
			fmt.Fprintf(w, "✗ %s\n", item.File)
			fmt.Fprintf(w, "  %s: %s\n", item.Error.Code, item.Error.Message)
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s after %d ticks, %d changes)\n",
			item.File, item.Terminated, item.TicksSimulated, item.Changes)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Batch Summary: %d succeeded, %d failed, %d total\n", result.Succeeded, result.Failed, result.Total)
}
