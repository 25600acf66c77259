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

	"github.com/okian/estimatb/internal/adapters/http/api"
	"github.com/okian/estimatb/internal/adapters/http/swagger"
	app "github.com/okian/estimatb/internal/app"
	"github.com/okian/estimatb/internal/config"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/prepare"
	"github.com/okian/estimatb/pkg/logger"
	"github.com/okian/estimatb/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newService builds the estimation service from configuration.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	var resolver prepare.Resolver = prepare.NewStrictResolver()
	if cfg.ColumnMode == "fuzzy" {
		resolver = prepare.NewFuzzyResolver()
	}
	return app.New(
		app.WithLogger(log),
		app.WithRange(cfg.Range()),
		app.WithSkipRows(cfg.SkipRows),
		app.WithScoreMode(model.ScoreMode(cfg.ScoreMode)),
		app.WithWorkers(cfg.Workers),
		app.WithMaxCandidates(cfg.MaxCandidates),
		app.WithResolver(resolver),
	)
}

// newMux registers the API and documentation routes for svc.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes()),
		api.WithDefaultRange(cfg.Range()),
		api.WithLogger(log),
	).Register(ctx, mux)
	swagger.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var avgPauseMs float64
	if m.NumGC > 0 {
		avgPauseMs = float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
	}
	metrics.UpdateSystem(m.Alloc, runtime.NumGoroutine(), avgPauseMs)
}
