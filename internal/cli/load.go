package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/loader"
)

// LoadSummary is the JSON payload of the load command.
type LoadSummary struct {
	BatchID  string           `json:"batch_id"`
	Items    int              `json:"items"`
	Applied  int              `json:"applied"`
	Fields   []string         `json:"fields"`
	Failures []loader.Outcome `json:"failures,omitempty"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [items.json]",
		Short: "Load a batch of items into the store",
		Long: `Load a batch of [field, uid, value] items.

The input is a JSON array of items, or an object {"items": [...]}. It is
read from the given file, or from stdin when the argument is "-" or absent.
Every item is reported; the command exits 1 if any item failed.

Example:
  echo '[["claim_type_code", 1, "AUTO"]]' | fieldkv load`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runLoad(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	items, err := readItems(path, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read items", err)
	}
	formatter.VerboseLog("Read %d item(s) from %s", len(items), path)

	s, err := opts.openStore()
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return err
	}

	res, err := opts.newLoader(s).Load(cmd.Context(), items)
	if err != nil {
		return formatter.Fail("load", err)
	}

	summary := LoadSummary{
		BatchID:  res.BatchID,
		Items:    len(res.Outcomes),
		Applied:  res.Applied(),
		Fields:   res.Fields,
		Failures: res.Failed(),
	}

	if len(summary.Failures) > 0 {
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeBatchFailed,
				fmt.Sprintf("%d of %d item(s) failed", len(summary.Failures), summary.Items), summary)
		} else {
			printLoadSummary(formatter.Writer, summary)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d item(s) failed", len(summary.Failures), summary.Items))
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	printLoadSummary(formatter.Writer, summary)
	return nil
}

func readItems(path string, stdin io.Reader) ([]loader.Item, error) {
	if path == "-" {
		return loader.DecodeItems(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loader.DecodeItems(f)
}

func printLoadSummary(w io.Writer, s LoadSummary) {
	mark := "✓"
	if len(s.Failures) > 0 {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Loaded %d/%d item(s) into %d field(s) (batch %s)\n",
		mark, s.Applied, s.Items, len(s.Fields), s.BatchID)
	for _, o := range s.Failures {
		fmt.Fprintf(w, "  item %d %s[%d]: %v\n", o.Index, o.Field, o.UID, o.Err)
	}
}
