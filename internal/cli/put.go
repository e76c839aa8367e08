package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/store"
	"github.com/roach88/fieldkv/internal/value"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	Kind string
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <field> <uid> <value>",
		Short: "Write one value",
		Long: `Write value for uid in field's shard, replacing any existing value.

The value is converted to the kind the catalog declares for the field.
Fields the catalog does not describe are stored as strings unless --kind
says otherwise. Identifier lists are written as JSON, e.g. '[1,2]'.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", "", "value kind for fields outside the catalog (string|integer|decimal|timestamp|identifier_list)")

	return cmd
}

func runPut(opts *PutOptions, field, uidArg, raw string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	uid, err := parseUID(uidArg)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse uid", err)
	}
	if opts.Kind != "" && !value.Kind(opts.Kind).Valid() {
		err := fmt.Errorf("invalid kind %q: must be one of %v", opts.Kind, value.Kinds)
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse kind", err)
	}

	s, err := opts.openStore()
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return err
	}

	v, err := putOne(cmd.Context(), s, field, uid, raw, value.Kind(opts.Kind))
	if err != nil {
		return formatter.Fail(fmt.Sprintf("put %s[%d]", field, uid), err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValueResult{Field: field, UID: uid, Kind: v.Kind(), Value: v})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s[%d] = %s\n", field, uid, v)
	return nil
}

// putOne converts raw for the field and commits it. An explicit kind only
// applies to fields the catalog does not describe.
func putOne(ctx context.Context, s *store.Store, field string, uid int64, raw string, kind value.Kind) (value.Value, error) {
	sh, err := s.Open(ctx, field, store.ReadWriteCreate)
	if err != nil {
		return nil, err
	}
	defer sh.Close()

	var v value.Value
	if _, known := s.KindOf(sh.Field()); known || kind == "" {
		v, err = sh.Coerce(raw)
	} else {
		v, err = value.From(kind, raw)
	}
	if err != nil {
		return nil, err
	}
	if err := sh.Put(ctx, uid, v); err != nil {
		return nil, err
	}
	return v, nil
}
