package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/quirks"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	Edition string
	Version string
	Rules   string
}

// EditionInfo lists the known versions of one edition.
type EditionInfo struct {
	Name     string   `json:"name"`
	Default  bool     `json:"default"`
	Versions []string `json:"versions"`
}

// PolicyResult is a resolved ruleset.
type PolicyResult struct {
	quirks.Policy
	Warnings []protocol.Warning `json:"warnings,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List rulesets or show the policy one resolves to",
		Long: `List the known editions and versions, or resolve one.

Without --edition or --version every edition is listed with its versions.
With either flag the ruleset is resolved exactly as a simulation would
resolve it (empty edition = default, empty version = latest, unknown
version = nearest known one with a warning) and its capability flags are
shown.

Exit codes:
  0 - Success
  1 - Unsupported edition
  2 - Command error (bad rules file, etc.)

Examples:
  redstonesim rules
  redstonesim rules --edition bedrock
  redstonesim rules --edition java --version 1.18 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Edition, "edition", "", "edition to resolve")
	cmd.Flags().StringVar(&opts.Version, "version", "", "version to resolve")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "ruleset table YAML (default: embedded)")

	return cmd
}

func runRules(opts *RulesOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	table, err := loadRules(opts.Rules)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	if table == nil {
		table = quirks.Default()
	}

	if opts.Edition == "" && opts.Version == "" {
		return listRules(formatter, cmd, table)
	}

	policy, warning, err := table.Resolve(opts.Edition, opts.Version)
	if err != nil {
		return requestFailed(formatter, err)
	}
	result := PolicyResult{Policy: policy}
	if warning != nil {
		result.Warnings = []protocol.Warning{{Code: string(warning.Code), Message: warning.Message}}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	printWarnings(w, result.Warnings)
	fmt.Fprintf(w, "%s %s\n", policy.Edition, policy.Version)
	fmt.Fprintf(w, "  quasi_connectivity:     %t\n", policy.QuasiConnectivity)
	fmt.Fprintf(w, "  repeater_locking:       %t\n", policy.RepeaterLocking)
	fmt.Fprintf(w, "  comparator_rear:        %s\n", policy.ComparatorRear)
	fmt.Fprintf(w, "  zero_tick:              %t\n", policy.ZeroTick)
	fmt.Fprintf(w, "  dust_diagonals:         %t\n", policy.DustDiagonals)
	fmt.Fprintf(w, "  diagonal_across_chunks: %t\n", policy.DiagonalAcrossChunks)
	fmt.Fprintf(w, "  block_update_detection: %t\n", policy.BlockUpdateDetection)
	return nil
}

func listRules(formatter *OutputFormatter, cmd *cobra.Command, table *quirks.Table) error {
	names := table.EditionNames()
	editions := make([]EditionInfo, 0, len(names))
	for _, name := range names {
		editions = append(editions, EditionInfo{
			Name:     name,
			Default:  name == table.DefaultEdition,
			Versions: table.VersionNames(name),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(editions)
	}

	w := cmd.OutOrStdout()
	for _, ed := range editions {
		marker := ""
		if ed.Default {
			marker = " (default)"
		}
		fmt.Fprintf(w, "%s%s: %v\n", ed.Name, marker, ed.Versions)
	}
	return nil
}
