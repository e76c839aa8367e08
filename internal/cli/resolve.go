package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/graph"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Node   string
	ID     int64
	Select []string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve [query.yaml]",
		Short: "Resolve a selection over the node graph",
		Long: `Resolve fields of a node and the nodes it references.

The query is a YAML document:

  node: Claim
  id: 1
  select:
    - claim_type_code
    - transactions:
        - amount

or, for flat selections, --node, --id and --select. The response is a JSON
document with "data" and, when some fields failed, "errors". The command
exits 1 if any field failed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runResolve(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Node, "node", "", "node type (Transaction|Claim|Party)")
	cmd.Flags().Int64Var(&opts.ID, "id", 0, "node id")
	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "comma-separated field names")

	return cmd
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	q, err := opts.query(path, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read query", err)
	}

	s, err := opts.openStore()
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return err
	}

	r := opts.newResolver(s)
	node, err := r.Node(q.Node, q.ID)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "resolve", err)
	}

	resp, err := r.Select(cmd.Context(), node, q.Select)
	if err != nil {
		return formatter.Fail("resolve", err)
	}

	enc := json.NewEncoder(formatter.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d field(s) failed", ErrCodePartial, len(resp.Errors)))
	}
	return nil
}

// query reads a query file (or stdin for "-"), or builds one from flags.
func (o *ResolveOptions) query(path string, stdin io.Reader) (*graph.Query, error) {
	if path == "" {
		if o.Node == "" || len(o.Select) == 0 {
			return nil, fmt.Errorf("give a query file, or --node, --id and --select")
		}
		q := &graph.Query{Node: o.Node, ID: o.ID}
		for _, f := range o.Select {
			if f = strings.TrimSpace(f); f != "" {
				q.Select = append(q.Select, graph.Selection{Field: f})
			}
		}
		return q, nil
	}

	if path == "-" {
		return graph.ParseQuery(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return graph.ParseQuery(f)
}
