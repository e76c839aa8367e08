package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/store"
)

// FieldInfo describes one shard on disk.
type FieldInfo struct {
	Field   string `json:"field"`
	Rows    int    `json:"rows"`
	Kind    string `json:"kind,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fields",
		Short:         "List the shards in the store",
		Long:          "List every field that has a shard file under the store root, with its row count and catalog kind.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, cmd)
		},
	}

	return cmd
}

func runFields(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := opts.openStore()
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return err
	}

	names, err := s.Fields()
	if err != nil {
		return formatter.Fail("list fields", err)
	}

	infos := make([]FieldInfo, 0, len(names))
	for _, name := range names {
		info, err := describeField(cmd, s, opts, name)
		if err != nil {
			return formatter.Fail("inspect "+name, err)
		}
		infos = append(infos, info)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "(no fields)")
		return nil
	}
	for _, info := range infos {
		kind := info.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(formatter.Writer, "%-40s %-16s %d\n", info.Field, kind, info.Rows)
	}
	return nil
}

func describeField(cmd *cobra.Command, s *store.Store, opts *RootOptions, name string) (FieldInfo, error) {
	sh, err := s.Open(cmd.Context(), name, store.ReadOnly)
	if err != nil {
		return FieldInfo{}, err
	}
	defer sh.Close()

	n, err := sh.Count(cmd.Context())
	if err != nil {
		return FieldInfo{}, err
	}

	info := FieldInfo{Field: name, Rows: n}
	if f, ok := opts.catalog.FieldForShard(name); ok {
		info.Kind = string(f.Kind)
		info.Variant = f.Variant
	}
	return info, nil
}
