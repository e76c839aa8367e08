package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <field> <uid>",
		Short:         "Remove one value",
		Long:          "Remove the value stored for uid in field's shard. Deleting an absent uid succeeds.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runDelete(opts *RootOptions, field, uidArg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	uid, err := parseUID(uidArg)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse uid", err)
	}

	s, err := opts.openStore()
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return err
	}

	if err := s.Delete(cmd.Context(), field, uid); err != nil {
		return formatter.Fail(fmt.Sprintf("delete %s[%d]", field, uid), err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"field": field, "uid": uid, "deleted": true})
	}
	fmt.Fprintf(formatter.Writer, "✓ Deleted %s[%d]\n", field, uid)
	return nil
}
