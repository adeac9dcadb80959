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

	"github.com/arnvald/zettel/internal/api"
	"github.com/arnvald/zettel/internal/collection"
	"github.com/arnvald/zettel/internal/editor"
	"github.com/arnvald/zettel/internal/index"
	"github.com/arnvald/zettel/internal/mcpserver"
	"github.com/arnvald/zettel/internal/sse"
	"github.com/arnvald/zettel/internal/storage"
	"github.com/arnvald/zettel/internal/zetservice"
	"github.com/arnvald/zettel/internal/zettel"
)

// configFrom applies the options and returns the mandatory config.
func configFrom(opts []Option) (*Config, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app.config, nil
}

// stderrLogger builds a JSON logger on stderr for commands whose stdout
// belongs to a protocol or a terminal editor.
func stderrLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// bootstrap opens the vault storage and the SQLite index and builds the
// service layer shared by the HTTP and MCP entry points.
func bootstrap(cfg *Config, logger *slog.Logger) (storage.Provider, *index.DB, *zetservice.Service, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	dialect := cfg.Vault.Dialect()

	store, err := storage.NewFS(cfg.Vault.Path, dialect.Extension())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, dialect, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return store, db, zetservice.NewService(store, db, dialect), nil
}

// Run starts the HTTP server, SSE broker, and file watcher.
func Run(ctx context.Context, opts ...Option) error {
	cfg, err := configFrom(opts)
	if err != nil {
		return err
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("vault_format", cfg.Vault.Format),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, svc, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token,
		http.HandlerFunc(broker.ServeHTTP), cfg.Vault.Path)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Attachments are served unauthenticated so image references inside
	// rendered documents resolve without a token.
	attachments := api.NewAttachmentHandler(cfg.Vault.Path)
	r.Get("/attachments/{filename}", attachments.ServeFile)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		index.Watch(gCtx, db, store, cfg.Vault.Path, cfg.Vault.Dialect(), logger, func(kind, path string) {
			broker.PublishZettelEvent(kind, path)
		})
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		broker.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdin/stdout. Stdout carries the MCP
// protocol, so logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	cfg, err := configFrom(opts)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	store, db, svc, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("MCP server starting on stdio",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("vault_format", cfg.Vault.Format))

	srv := mcpserver.New(store, svc)
	return srv.ServeStdio()
}

// RunNew creates a zettel in the vault, seeded from a ztemplate.yaml beside
// it when one exists, and optionally opens it in the external editor first.
func RunNew(_ context.Context, path, title string, edit bool, opts ...Option) error {
	cfg, err := configFrom(opts)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	store, db, _, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	createOpts := collection.CreateOptions{Title: title}
	if edit {
		createOpts.Editor = &editor.External{Command: cfg.Editor.Command}
	}
	if _, err := collection.Create(store, path, cfg.Vault.Dialect(), createOpts); err != nil {
		return err
	}
	logger.Info("zettel created", slog.String("path", path))

	return index.Sync(db, store, cfg.Vault.Dialect(), logger)
}

// RunEdit opens the given zettels (or the whole vault when paths is empty) in
// one editor buffer and reconciles the result back into the files.
func RunEdit(_ context.Context, paths, headings []string, del bool, opts ...Option) error {
	cfg, err := configFrom(opts)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	store, db, _, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	dialect := cfg.Vault.Dialect()

	var zs []*zettel.Zettel
	if len(paths) == 0 {
		zs, err = collection.Load(store, "", dialect)
		if err != nil {
			return err
		}
	} else {
		for _, p := range paths {
			data, err := store.Read(p)
			if err != nil {
				return fmt.Errorf("edit %s: %w", p, err)
			}
			z, err := zettel.Parse(string(data), dialect)
			if err != nil {
				return fmt.Errorf("edit %s: %w", p, err)
			}
			z.Path = p
			zs = append(zs, z)
		}
	}

	ed := &editor.External{Command: cfg.Editor.Command}
	_, err = collection.Edit(store, ed, zs, dialect, collection.EditOptions{
		Headings: headings,
		Delete:   del,
		ErrLog:   "zedit.err",
	})
	if err != nil {
		return err
	}

	return index.Sync(db, store, dialect, logger)
}
