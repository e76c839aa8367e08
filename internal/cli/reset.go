package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every shard in the store",
		Long: `Delete every shard file under the store root.

Irreversible: there is no backup and no confirmation prompt. Resetting an
empty store succeeds.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(rootOpts, cmd)
		},
	}

	return cmd
}

func runReset(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := opts.openStore()
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return err
	}

	before, err := s.Fields()
	if err != nil {
		return formatter.Fail("list fields", err)
	}
	if err := s.Reset(cmd.Context()); err != nil {
		return formatter.Fail("reset", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"root": s.Root(), "removed": before})
	}
	fmt.Fprintf(formatter.Writer, "✓ Removed %d field(s) from %s\n", len(before), s.Root())
	return nil
}
