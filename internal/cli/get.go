package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/value"
)

// ValueResult is the JSON payload of get and put.
type ValueResult struct {
	Field string      `json:"field"`
	UID   int64       `json:"uid"`
	Kind  value.Kind  `json:"kind"`
	Value value.Value `json:"value"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <field> <uid>",
		Short: "Read one value",
		Long: `Read the value stored for uid in field's shard.

Exits 1 with E005 if the shard holds no value for uid.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, field, uidArg string, cmd *cobra.Command) error {
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

	v, err := s.Get(cmd.Context(), field, uid)
	if err != nil {
		return formatter.Fail(fmt.Sprintf("get %s[%d]", field, uid), err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValueResult{Field: field, UID: uid, Kind: v.Kind(), Value: v})
	}
	fmt.Fprintln(formatter.Writer, v.String())
	return nil
}

func parseUID(s string) (int64, error) {
	uid, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid uid %q: must be an integer", s)
	}
	return uid, nil
}
