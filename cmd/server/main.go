package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	webAdapter "inventory-transfer/internal/adapters/web"
	"inventory-transfer/internal/app"
	"inventory-transfer/internal/config"
	"inventory-transfer/internal/db"
	"inventory-transfer/internal/logger"
	"inventory-transfer/internal/store/postgres"
	"inventory-transfer/migrations"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
		log.Warn("JWT_SECRET is not set, using an insecure development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool, migrations.FS, log); err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
	}

	rt, err := app.NewRuntime(ctx, cfg, postgres.New(pool), log)
	if err != nil {
		log.Fatal("runtime", zap.Error(err))
	}
	defer rt.Close()

	handler := webAdapter.NewHandler(rt.Service, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         log,
		Instrument:     rt.Metrics.Instrument,
		Metrics:        rt.Metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("environment", cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
	}
}
