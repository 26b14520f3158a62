// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/coldcases/internal/api"
	"github.com/starford/coldcases/internal/caseservice"
	"github.com/starford/coldcases/internal/catalog"
	"github.com/starford/coldcases/internal/index"
	"github.com/starford/coldcases/internal/mcpserver"
	"github.com/starford/coldcases/internal/sse"
	"github.com/starford/coldcases/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// components is the catalog stack shared by every command.
type components struct {
	store  *storage.FS
	loader *catalog.Loader
	db     *index.DB
	vm     *catalog.ViewModel
	svc    *caseservice.Service
}

func buildComponents(cfg *Config, logger *slog.Logger, vmOpts ...catalog.Option) (*components, error) {
	fsOpts := []storage.FSOption{storage.WithExclude(cfg.Catalog.Exclude...)}
	if cfg.Catalog.PhotosPath != "" {
		fsOpts = append(fsOpts, storage.WithPhotos(cfg.Catalog.PhotosPath))
	}
	store, err := storage.NewFS(cfg.Catalog.Path, fsOpts...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	loader := catalog.NewLoader(store,
		catalog.WithConcurrency(cfg.Catalog.Concurrency),
		catalog.WithLoaderLogger(logger))

	var db *index.DB
	if cfg.Index.DSN != "" {
		db, err = index.Open(cfg.Index.DSN)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
	}

	opts := append([]catalog.Option{
		catalog.WithDebounce(cfg.Search.Debounce),
		catalog.WithValidator(catalog.NewValidator(cfg.Catalog.Statuses...)),
		catalog.WithLogger(logger),
	}, vmOpts...)
	vm := catalog.NewViewModel(loader, opts...)

	// A nil *index.DB must not become a non-nil interface.
	var idx index.CaseIndex
	if db != nil {
		idx = db
	}
	return &components{
		store:  store,
		loader: loader,
		db:     db,
		vm:     vm,
		svc:    caseservice.NewService(vm, idx, logger),
	}, nil
}

func (c *components) Close() {
	c.vm.Dispose()
	if c.db != nil {
		_ = c.db.Close()
	}
}

// watch reloads the catalog whenever the case tree changes.
func (c *components) watch(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	if !cfg.Catalog.Watch {
		return nil
	}
	return catalog.Watch(ctx, c.store.Root(), cfg.Catalog.Settle, logger, func(ctx context.Context) {
		if err := c.svc.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
		}
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("index_dsn", cfg.Index.DSN),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	comp, err := buildComponents(cfg, logger, catalog.WithObserver(func(ev catalog.Event) {
		changes := ev.Kind == catalog.EventLoaded || ev.Kind == catalog.EventSaved
		broker.PublishCatalogEvent(string(ev.Kind), ev.CaseID, changes)
	}))
	if err != nil {
		return err
	}
	defer comp.Close()

	// A failed first load is surfaced through the view state; keep serving.
	if err := comp.svc.Reload(ctx); err != nil {
		logger.Error("initial load failed", slog.String("error", err.Error()))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if comp.vm.Stats().Loads == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(comp.svc, broker))
	r.Get("/photos/{filename}", api.NewPhotoHandler(comp.store).ServeFile)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := comp.watch(gCtx, cfg, logger); err != nil {
			logger.Warn("watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

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

		logger.Info("Shutting down server...")

		// SSE streams only end when the broker closes them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the catalog tools over stdio until stdin closes or ctx ends.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	comp, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comp.Close()

	if err := comp.svc.Reload(ctx); err != nil {
		logger.Error("initial load failed", slog.String("error", err.Error()))
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := comp.watch(watchCtx, cfg, logger); err != nil {
			logger.Warn("watcher disabled", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting on stdio", slog.String("catalog_path", cfg.Catalog.Path))
	return mcpserver.New(comp.svc, app.version).ServeStdio()
}

// CheckResult summarizes a one-off load of the case tree.
type CheckResult struct {
	Accepted int
	Rejected map[string]error
}

// Check loads the case tree once, validates every accepted case strictly
// and writes a report to out. Cases that load but fail strict validation
// are counted as rejected.
func Check(ctx context.Context, out io.Writer, opts ...Option) (*CheckResult, error) {
	app, err := newApplication(append([]Option{WithLogOutput(io.Discard)}, opts...))
	if err != nil {
		return nil, err
	}
	cfg := app.config
	cfg.Index.DSN = ""
	logger := app.logger()

	comp, err := buildComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer comp.Close()

	rep, err := comp.loader.LoadReport(ctx)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{Rejected: rep.Rejected}
	validator := catalog.NewValidator(cfg.Catalog.Statuses...)
	for _, c := range rep.Cases {
		if _, err := validator.Validate(c); err != nil {
			res.Rejected[c.ID] = err
			continue
		}
		res.Accepted++
	}

	fmt.Fprintf(out, "%d accepted, %d rejected\n", res.Accepted, len(res.Rejected))
	names := make([]string, 0, len(res.Rejected))
	for name := range res.Rejected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %v\n", name, res.Rejected[name])
	}
	return res, nil
}
