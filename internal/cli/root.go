package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldkv/internal/config"
	"github.com/roach88/fieldkv/internal/graph"
	"github.com/roach88/fieldkv/internal/loader"
	"github.com/roach88/fieldkv/internal/pool"
	"github.com/roach88/fieldkv/internal/schema"
	"github.com/roach88/fieldkv/internal/store"
)

// RootOptions holds global flags for all commands and the settings they
// resolve to.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Root       string
	Schema     string
	Workers    int
	LogFormat  string

	// LookupEnv reads environment overrides. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	cfg     config.Config
	logger  *slog.Logger
	catalog *schema.Catalog
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fieldkv CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{LookupEnv: os.LookupEnv}

	cmd := &cobra.Command{
		Use:   "fieldkv",
		Short: "fieldkv - field-partitioned key-value store",
		Long: `A key-value store with one SQLite shard per field, a concurrent batch
loader and a lazy graph resolver over Transaction, Claim and Party nodes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&opts.Root, "root", "r", config.DefaultRoot, "store root directory")
	flags.StringVar(&opts.Schema, "schema", "", "CUE catalog file (default: embedded claims catalog)")
	flags.IntVarP(&opts.Workers, "workers", "w", pool.DefaultSize, "concurrent lookups while resolving")
	flags.StringVar(&opts.LogFormat, "log-format", config.FormatText, "log format (text|json)")

	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewFieldsCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// resolve layers config file, environment and explicitly set flags, then
// builds the logger and catalog.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "load config", err)
		}
		cfg = loaded
	}

	lookup := o.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return WrapExitError(ExitCommandError, "read environment", err)
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = o.Root
	}
	if flags.Changed("schema") {
		cfg.Schema = o.Schema
	}
	if flags.Changed("workers") {
		cfg.Workers = o.Workers
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.LogFormat
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.cfg = cfg
	o.logger = newLogger(&cfg, cmd.ErrOrStderr())

	catalog := schema.Default()
	if cfg.Schema != "" {
		c, err := schema.Load(cfg.Schema)
		if err != nil {
			return WrapExitError(ExitCommandError, "load schema", err)
		}
		catalog = c
	}
	o.catalog = catalog

	o.logger.Debug("configuration resolved",
		"root", cfg.Root, "schema", cfg.Schema, "workers", cfg.Workers)
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if f, ok := w.(*os.File); ok {
		return cfg.NewLogger(f)
	}
	return cfg.NewWriterLogger(w)
}

// Config returns the resolved configuration.
func (o *RootOptions) Config() config.Config {
	return o.cfg
}

func (o *RootOptions) openStore() (*store.Store, error) {
	s, err := store.New(o.cfg.Root, store.WithKinds(o.catalog), store.WithLogger(o.logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return s, nil
}

func (o *RootOptions) newLoader(s *store.Store) *loader.Loader {
	return loader.New(s, loader.WithLogger(o.logger))
}

func (o *RootOptions) newResolver(s *store.Store) *graph.Resolver {
	return graph.NewResolver(s, pool.New(o.cfg.Workers), o.catalog, graph.WithLogger(o.logger))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
