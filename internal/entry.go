// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/logging"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// Version is reported by the MCP server.
var Version = "dev"

// backend is the server side shared by serve and mcp.
type backend struct {
	store  *storage.FS
	db     *index.DB
	svc    *noteservice.Service
	broker *sse.Broker
}

func (b *backend) Close() {
	if b.broker != nil {
		b.broker.Close()
	}
	_ = b.db.Close()
}

// openBackend prepares the vault, opens the index and brings it in line with
// the files on disk.
func openBackend(cfg *Config, logger *slog.Logger, withEvents bool) (*backend, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Extension)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	b := &backend{store: store, db: db}
	svcOpts := []noteservice.Option{noteservice.WithLogger(logger.With(slog.String("component", "notes")))}
	if withEvents {
		b.broker = sse.NewBroker(sse.Options{})
		svcOpts = append(svcOpts, noteservice.WithNotifier(b.broker.NoteChanged))
	}
	b.svc = noteservice.NewService(store, db, svcOpts...)
	return b, nil
}

// newHTTPHandler builds the full route tree: health checks at the root and
// the notes API under /api.
func newHTTPHandler(cfg *Config, b *backend, logger *slog.Logger) http.Handler {
	apiCfg := api.Config{
		Auth: api.AuthConfig{
			Mode:   cfg.Auth.Mode,
			Token:  cfg.Auth.Token,
			Secret: cfg.Auth.Secret,
		},
		Profile: api.Profile{
			UserID:           cfg.Profile.UserID,
			FirstName:        cfg.Profile.FirstName,
			LastName:         cfg.Profile.LastName,
			IsActive:         true,
			MaxStorage:       cfg.Profile.MaxStorage,
			AutoSave:         cfg.Profile.AutoSave,
			AutoSaveDuration: cfg.Profile.AutoSaveDuration,
		},
		Profiles: b.db,
		Logger:   logger,
	}
	if b.broker != nil {
		apiCfg.Events = b.broker
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
	r.Get("/health/live", ok)
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, err := b.db.Usage(); err != nil {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		ok(w, req)
	})

	r.Mount("/api", api.NewRouter(b.svc, apiCfg))
	return r
}

func (a *application) serverLogger() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return logging.New(os.Stdout, a.config.App.LogFormat, a.config.App.LogLevel)
}

// Run starts the notes server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.serverLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("vault_extension", cfg.Vault.Extension),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	b, err := openBackend(cfg, logger, true)
	if err != nil {
		return err
	}
	defer b.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, b, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Vault.Watching() {
		g.Go(func() error {
			if err := index.Watch(gCtx, b.db, b.store, b.store.Root(), logger, b.broker.NoteChanged); err != nil {
				logger.Warn("vault watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		// SSE handlers only return once their subscription closes.
		b.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the vault over MCP on stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger
	if logger == nil {
		logger = logging.New(os.Stderr, app.config.App.LogFormat, app.config.App.LogLevel)
	}

	b, err := openBackend(app.config, logger, false)
	if err != nil {
		return err
	}
	defer b.Close()

	srv := mcpserver.New(b.svc, Version)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
