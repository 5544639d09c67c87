package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/ginput/internal/adapters/http/api"
	"github.com/okian/ginput/internal/adapters/http/swagger"
	app "github.com/okian/ginput/internal/app"
	"github.com/okian/ginput/internal/config"
	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "service failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run serves the figure until ctx is done, starting one interaction in the
// configured mode.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	// Follow log level changes in the config file
	if err := config.Watch(ctx, func(c *config.Config, err error) {
		if err != nil {
			log.Warn(ctx, "config reload failed", logger.Error(err))
			return
		}
		if err := logger.SetLevelString(c.LogLevel); err != nil {
			log.Warn(ctx, "invalid log_level on reload", logger.String("log_level", c.LogLevel))
			return
		}
		log.Info(ctx, "config reloaded", logger.String("log_level", c.LogLevel))
	}); err != nil {
		log.Warn(ctx, "config watch disabled", logger.Error(err))
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	req := sessionRequest(cfg)
	id, err := svc.StartSession(ctx, req)
	if err != nil {
		log.Error(ctx, "failed to start interaction", logger.String("mode", req.Mode), logger.Error(err))
	} else {
		log.Info(ctx, "waiting for input", logger.String("mode", req.Mode), logger.String("session", id))
	}

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService builds the figure service from cfg.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	finish, undo, err := cfg.Buttons()
	if err != nil {
		return nil, err
	}
	return app.New(
		app.WithLogger(log),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithFigureSize(cfg.FigureWidth, cfg.FigureHeight),
		app.WithButtons(finish, undo),
		app.WithInlineSpacing(cfg.InlineSpacing),
	), nil
}

// newMux wires the API, docs and metrics routes.
func newMux(svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc,
		api.WithSessions(svc),
		api.WithLogger(log.Named("api")),
	).Register(mux)
	return mux
}

// sessionRequest maps the configured mode to an interaction. Non-positive
// count and timeout mean unbounded; clabel keeps its own defaults.
func sessionRequest(cfg *config.Config) model.SessionRequest {
	req := model.SessionRequest{
		Mode:       cfg.Mode,
		ShowClicks: cfg.ShowClicks,
		Inline:     cfg.Inline,
	}
	if cfg.Mode == config.ModeClabel {
		return req
	}
	req.Timeout = cfg.Timeout()
	if req.Timeout <= 0 {
		req.Timeout = -1
	}
	if cfg.Mode == config.ModeGinput {
		req.Count = cfg.Count
		if req.Count <= 0 {
			req.Count = -1
		}
	}
	return req
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that only change on reads.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateCanvasQueueSize(queueLen)
	}
	if pending, ok := stats["pendingSessions"].(int); ok {
		metrics.UpdateJobQueueSize(pending)
	}
}
