// Package main is the entry point for the tabledesk server.
//
// tabledesk serves a set of named two-column tables stored as a single
// document, with login, import, export and bulk row operations. Settings come
// from defaults, an optional YAML file, the environment (a .env file is
// loaded first) and finally command line flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/tabledesk/tabledesk/internal/config"
	"github.com/tabledesk/tabledesk/internal/docstore"
	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/importer"
	"github.com/tabledesk/tabledesk/internal/server"
	"github.com/tabledesk/tabledesk/internal/server/handlers"
	"github.com/tabledesk/tabledesk/internal/server/ratelimit"
	"github.com/tabledesk/tabledesk/internal/tables"
	"github.com/tabledesk/tabledesk/internal/view"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tabledesk: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "tabledesk.yaml", "YAML configuration file; ignored when missing")
	httpAddr := flag.String("http", "", "Address to listen on (e.g., localhost:8080, :8080)")
	dbURL := flag.String("db", "", "Document store: mongodb://, postgres://, sqlite://PATH, file://DIR or a directory")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	watch := flag.Bool("watch", false, "Exit when the executable is rebuilt")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(ll))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTP = *httpAddr
		case "db":
			cfg.Database.URL = *dbURL
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	ll.Set(level)
	if err := cfg.EnsureSecret(); err != nil {
		return err
	}
	if cfg.Auth.GeneratedSecret {
		slog.WarnContext(ctx, "No JWT secret configured; generated one, sessions will not survive a restart")
	}

	addr := cfg.HTTP
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	db := docstore.NewLazy(func(ctx context.Context) (docstore.Store, error) {
		return docstore.Open(ctx, cfg.Database.URL, docstore.Options{Database: cfg.Database.Name})
	})
	defer func() { _ = db.Close() }()

	users := identity.NewUserService(db)
	if n, err := users.EnsureAccounts(ctx, cfg.Auth.Accounts); err != nil {
		// Keep serving so /api/health can report the store as unavailable.
		slog.ErrorContext(ctx, "Failed to create accounts", "err", err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Created accounts", "count", n)
	}

	if *watch {
		if err := watchExecutable(ctx, stop); err != nil {
			return fmt.Errorf("failed to watch executable: %w", err)
		}
	}

	store := tables.NewStore(db)
	svc := &handlers.Services{
		Tables:   store,
		Importer: importer.NewPipeline(store),
		View:     view.NewEngine(cfg.Language()),
		Users:    users,
		Sessions: identity.NewSessionService(db, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		Ping: func(ctx context.Context) error {
			_, err := db.Acquire(ctx)
			return err
		},
	}
	buildVersion, _, _, _ := getBuildInfo()
	hcfg := &handlers.Config{
		Version:        buildVersion,
		MaxBodyBytes:   cfg.Limits.MaxBodyBytes,
		MaxUploadBytes: cfg.Limits.MaxUploadBytes,
	}
	limiters := ratelimit.NewConfig(cfg.Limits.LoginPerMinute, cfg.Limits.WritePerMinute, cfg.Limits.ReadPerMinute)
	defer limiters.Close()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, hcfg, limiters),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "db", redact(cfg.Database.URL), "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

func newLogger(level slog.Leveler) *slog.Logger {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case int64:
				skip = t == 0
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// redact hides the password of a database URL.
func redact(dbURL string) string {
	scheme, rest, ok := strings.Cut(dbURL, "://")
	if !ok {
		return dbURL
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return dbURL
	}
	user, _, _ := strings.Cut(rest[:at], ":")
	return scheme + "://" + user + ":xxx" + rest[at:]
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("tabledesk %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable calls stop when the current executable is rewritten, so a
// supervisor restarts the new build.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
