package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/liamcoop/fieldinsights/alertrules"
	"github.com/liamcoop/fieldinsights/auth"
	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/internal/config"
	"github.com/liamcoop/fieldinsights/internal/logger"
	"github.com/liamcoop/fieldinsights/regression"
	"github.com/liamcoop/fieldinsights/store"
)

const sessionPurgeInterval = 10 * time.Minute

// openStores picks Postgres when a database is configured and in-memory
// stores otherwise
func openStores(cfg config.Config) (Deps, func(), error) {
	if !cfg.UsePostgres() {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return Deps{
			Store: store.NewInMemoryStore(),
			Rules: alertrules.NewInMemoryRuleStore(),
		}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return Deps{}, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return Deps{}, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return Deps{
		Store: store.NewPostgresStore(db),
		Rules: alertrules.NewPostgresRuleStore(db),
		DB:    db,
	}, func() { db.Close() }, nil
}

// loadModels builds the configured regressors. A nil result selects the
// rule-based strategy.
func loadModels(mc config.ModelConfig) (yield, health insights.Regressor, err error) {
	switch {
	case mc.YieldURL != "":
		rc := regression.DefaultRemoteConfig(mc.YieldURL)
		rc.Timeout = mc.RemoteTimeout
		rc.MaxRetries = mc.RemoteRetries
		rc.FailureThreshold = mc.BreakerFailures
		rc.OpenTimeout = mc.BreakerOpenTimeout
		yield = regression.NewRemote(rc)
	case mc.YieldPath != "":
		m, err := regression.LoadLinear(mc.YieldPath)
		if err != nil {
			return nil, nil, fmt.Errorf("yield model: %w", err)
		}
		yield = m
	}

	if mc.HealthPath != "" {
		m, err := regression.LoadLinear(mc.HealthPath)
		if err != nil {
			return nil, nil, fmt.Errorf("health model: %w", err)
		}
		health = m
	}
	return yield, health, nil
}

// purgeSessions drops expired sessions until ctx is cancelled
func purgeSessions(ctx context.Context, svc *auth.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session purge failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired sessions", slog.Int64("count", n))
			}
		}
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := logger.Setup(ctx, logger.OptionsFromEnv()); err != nil {
		logger.Warn("logger setup degraded", slog.Any("error", err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", slog.Any("error", err))
	}

	deps, closeStores, err := openStores(cfg)
	if err != nil {
		logger.Fatal("failed to open storage", slog.Any("error", err))
	}
	defer closeStores()

	deps.YieldModel, deps.HealthModel, err = loadModels(cfg.Models)
	if err != nil {
		logger.Fatal("failed to load models", slog.Any("error", err))
	}
	deps.SessionTTL = cfg.SessionTTL
	deps.RulesCacheTTL = cfg.RulesCacheTTL
	deps.RequestTimeout = cfg.RequestTimeout

	server, err := NewServer(deps)
	if err != nil {
		logger.Fatal("failed to create server", slog.Any("error", err))
	}

	go purgeSessions(ctx, server.auth, sessionPurgeInterval)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.Bool("postgres", cfg.UsePostgres()),
			slog.Bool("yield_model", deps.YieldModel != nil),
			slog.Bool("health_model", deps.HealthModel != nil),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", slog.Any("error", err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}

	logger.Info("server stopped")
}
