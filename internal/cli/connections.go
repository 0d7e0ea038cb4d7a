package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/quirks"
	"github.com/roach88/redstonesim/internal/sim"
)

// ConnectionsOptions holds flags for the connections command.
type ConnectionsOptions struct {
	*RootOptions
	Input   string
	Edition string
	Version string
}

// ConnectionsResult is the data payload of the connections command.
type ConnectionsResult struct {
	Type    string              `json:"type"`
	At      protocol.Coordinate `json:"at"`
	Edition string              `json:"edition"`
	Version string              `json:"version"`
	protocol.ConnectionsResponse
	Warnings []protocol.Warning `json:"warnings,omitempty"`
}

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConnectionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Show which positions a block reads from and powers",
		Long: `Resolve the inputs and outputs of a single placed block.

The block is read from --in (or stdin) as a connections request document.
No simulation is performed and no neighbours are assumed. The ruleset
selects capability options such as quasi-connectivity.

Exit codes:
  0 - Connections resolved
  1 - Request rejected (parse, validation or edition error)
  2 - Command error (unreadable input, etc.)

Examples:
  echo '{"x":0,"y":0,"z":0,"type":"repeater","facing":"east"}' | redstonesim connections
  redstonesim connections --in piston.json --edition java --version 1.20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnections(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "in", "i", "-", "connections request document (- for stdin)")
	cmd.Flags().StringVar(&opts.Edition, "edition", "", "ruleset edition (overrides request)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "ruleset version (overrides request)")

	return cmd
}

func runConnections(opts *ConnectionsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	raw, err := readInput(opts.Input, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read request", err)
	}

	placed, sel, err := protocol.DecodeConnections(raw)
	if err != nil {
		return requestFailed(formatter, err)
	}
	if cmd.Flags().Changed("edition") {
		sel.Edition = opts.Edition
	}
	if cmd.Flags().Changed("version") {
		sel.Version = opts.Version
	}

	policy, warning, err := quirks.Default().Resolve(sel.Edition, sel.Version)
	if err != nil {
		return requestFailed(formatter, err)
	}
	c, err := sim.Connections(placed.Pos, placed.Block, policy)
	if err != nil {
		return requestFailed(formatter, err)
	}

	result := ConnectionsResult{
		Type:                placed.Block.Kind.String(),
		At:                  protocol.Coordinate{X: placed.Pos[0], Y: placed.Pos[1], Z: placed.Pos[2]},
		Edition:             policy.Edition,
		Version:             policy.Version,
		ConnectionsResponse: protocol.NewConnectionsResponse(c),
	}
	if warning != nil {
		result.Warnings = []protocol.Warning{{Code: string(warning.Code), Message: warning.Message}}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	printWarnings(w, result.Warnings)
	fmt.Fprintf(w, "%s at %s (%s %s)\n", result.Type, formatCoordinate(result.At), result.Edition, result.Version)
	fmt.Fprintf(w, "  inputs:  %s\n", formatCoordinates(result.Inputs))
	fmt.Fprintf(w, "  outputs: %s\n", formatCoordinates(result.Outputs))
	if len(result.Sides) > 0 {
		fmt.Fprintf(w, "  sides:   %s\n", formatCoordinates(result.Sides))
	}
	if len(result.Quasi) > 0 {
		fmt.Fprintf(w, "  quasi:   %s\n", formatCoordinates(result.Quasi))
	}
	return nil
}
