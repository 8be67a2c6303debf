package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codestruct/internal/config"
	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/logging"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/store"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by subcommands once the root command has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "codestruct",
		Short:         "Extract data structures and scope graphs from source code",
		Long:          "codestruct parses Java, TypeScript, Go, Python and Rust with tree-sitter, producing per-file data structures, lexical scope graphs, a queryable struct index and Mermaid diagrams.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file or directory holding codestruct.yml (default: current directory)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text|json")

	root.AddCommand(
		newParseCmd(a),
		newScopesCmd(a),
		newIndexCmd(a),
		newDiagramCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads configuration, applies flag overrides and builds the logger.
// Logs go to stderr so stdout stays machine-readable.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return nil
}

// engine builds an engine from configuration. A non-empty languages list
// overrides the configured one.
func (a *app) engine(ctx context.Context, languages []string) (*engine.Engine, error) {
	opts := engine.OptionsFromConfig(a.cfg, a.logger)
	if len(languages) > 0 {
		opts = append(opts, engine.WithLanguages(model.ParseLanguages(languages)...))
	}
	return engine.New(ctx, opts...)
}

// scanOptions returns the configured scan filters narrowed to the engine's
// languages.
func (a *app) scanOptions(e *engine.Engine) engine.ScanOptions {
	opts := engine.ScanOptionsFromConfig(a.cfg)
	opts.Languages = e.Languages()
	return opts
}

// openStore opens the file-backed index at dbPath, falling back to the
// configured store path and then to an in-memory index.
func (a *app) openStore(dbPath string) (store.Store, error) {
	if dbPath == "" {
		dbPath = a.cfg.Store.Path
	}
	if dbPath == "" {
		return store.NewMemStore(), nil
	}
	var (
		s   store.Store
		err error
	)
	switch a.cfg.Store.ResolveBackend(dbPath) {
	case config.BackendSQLite:
		s, err = store.NewSQLiteStore(dbPath)
	default:
		s, err = store.NewKuzuFileStore(dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", dbPath, err)
	}
	return s, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skip config loading so version works anywhere.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
