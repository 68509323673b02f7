// Package server assembles configuration, storage, services and the HTTP
// router into a running process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hrms/internal/platform/config"
	"hrms/internal/platform/db"
	"hrms/internal/platform/logging"
	"hrms/internal/platform/metrics"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config   config.Config
	Log      *zap.Logger
	Pool     *pgxpool.Pool
	Services *Services
	Infra    *Infra
	Router   http.Handler
}

// New connects to postgres, migrates and seeds when configured, and builds
// the router.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	gdb, err := db.OpenGorm(pool, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.RunMigrations {
		sqlDB, err := gdb.DB()
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := db.Migrate(sqlDB, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	infra, err := NewInfra(ctx, cfg, m, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	svc, err := NewServices(gdb, cfg, infra, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.RunSeed {
		if err := svc.Auth.Seed(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	if err := RegisterJobs(svc, cfg); err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Pool:     pool,
		Services: svc,
		Infra:    infra,
		Router:   NewRouter(cfg, svc, pool.Ping, log),
	}, nil
}

// Serve runs the HTTP server and scheduler until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	a.Services.Jobs.Start()

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("listening", zap.String("addr", a.Config.Addr), zap.String("env", a.Config.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.Services.Jobs.Stop(shutdownCtx)
	return err
}

func (a *App) Close() {
	if err := a.Infra.Publisher.Close(); err != nil {
		a.Log.Warn("event publisher close failed", zap.Error(err))
	}
	if closer, ok := a.Infra.Revoked.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Log.Warn("redis close failed", zap.Error(err))
		}
	}
	a.Pool.Close()
}

// Run is the process entry point: it exits non-zero through the returned error.
func Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
