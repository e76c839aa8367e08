package cli

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Field  string
	SQL    string
	Params []string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a diagnostic SQL statement against one shard",
		Long: `Run a SQL statement against a field's shard through a read-only
connection and print the matching rows, one JSON object per line.

Parameters that parse as integers are bound as integers.

Example:
  fieldkv query --field claim_type_code --sql 'select * from items where uid = ?' --param 1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Field, "field", "f", store.DefaultQueryField, "field whose shard is queried")
	cmd.Flags().StringVarP(&opts.SQL, "sql", "s", store.DefaultQuerySQL, "statement to run")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "positional parameter (repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := opts.openStore()
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return err
	}

	rows, err := s.Query(cmd.Context(), store.DiagnosticQuery{
		Field:      opts.Field,
		SQL:        opts.SQL,
		Parameters: queryParams(opts.Params),
	})
	if err != nil {
		return formatter.Fail("query "+opts.Field, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}
	enc := json.NewEncoder(formatter.Writer)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	formatter.VerboseLog("%d row(s)", len(rows))
	return nil
}

func queryParams(raw []string) []any {
	params := make([]any, len(raw))
	for i, p := range raw {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			params[i] = n
			continue
		}
		params[i] = p
	}
	return params
}
