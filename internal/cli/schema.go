package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/schema"
)

// VariantInfo is the JSON form of one catalog variant.
type VariantInfo struct {
	Name   string         `json:"name"`
	Fields []schema.Field `json:"fields"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "schema",
		Short:         "Print the node catalog",
		Long:          "Print every node variant with its fields, shards, kinds and reference targets.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}

	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	variants := opts.catalog.Variants()
	if formatter.Format == "json" {
		infos := make([]VariantInfo, len(variants))
		for i, v := range variants {
			infos[i] = VariantInfo{Name: v.Name, Fields: v.Fields}
		}
		return formatter.Success(infos)
	}

	for _, v := range variants {
		fmt.Fprintln(formatter.Writer, v.Name)
		for _, f := range v.Fields {
			kind := string(f.Kind)
			if f.Target != "" {
				kind += " -> " + f.Target
			}
			if f.Optional {
				kind += " (optional)"
			}
			fmt.Fprintf(formatter.Writer, "  %-34s %-34s %s\n", f.Name, f.Shard, kind)
		}
	}
	return nil
}
