// Command tablectl imports, exports and queries tables directly against a
// document store, without going through the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tabledesk/tabledesk/internal/config"
	"github.com/tabledesk/tabledesk/internal/docstore"
	"github.com/tabledesk/tabledesk/internal/tables"
)

// globals holds the persistent flags.
type globals struct {
	configPath string
	dbURL      string
	dbName     string
	logLevel   string

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tablectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "tablectl",
		Short: "Manage tabledesk tables from the command line",
		Long: `tablectl reads and writes the table document directly.

It uses the same configuration as the server: defaults, tabledesk.yaml, the
environment and .env, then the flags below.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "tabledesk.yaml", "YAML configuration file; ignored when missing")
	root.PersistentFlags().StringVar(&g.dbURL, "db", "", "Document store URL (overrides the configuration)")
	root.PersistentFlags().StringVar(&g.dbName, "db-name", "", "Database name for MongoDB")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newImportCmd(g), newExportCmd(g), newQueryCmd(g))
	return root
}

func (g *globals) init(cmd *cobra.Command) error {
	level, err := config.ParseLogLevel(g.logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database.URL = g.dbURL
	}
	if cmd.Flags().Changed("db-name") {
		cfg.Database.Name = g.dbName
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	g.cfg = cfg
	return nil
}

// openStore connects to the configured store. The caller closes it.
func (g *globals) openStore(ctx context.Context) (docstore.Store, *tables.Store, error) {
	db, err := docstore.Open(ctx, g.cfg.Database.URL, docstore.Options{Database: g.cfg.Database.Name})
	if err != nil {
		return nil, nil, err
	}
	slog.DebugContext(ctx, "Opened document store", "url", g.cfg.Database.URL)
	return db, tables.NewStore(db), nil
}
