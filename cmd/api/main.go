package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agrisense/backend/internal/config"
	"agrisense/backend/internal/db"
	"agrisense/backend/internal/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := newLogger(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("database schema setup failed", zap.Error(err))
	}
	if err := server.ValidateRuntimeSchema(ctx, pool); err != nil {
		logger.Fatal("database schema mismatch", zap.Error(err))
	}

	app := server.New(cfg, pool, logger)

	go runReminderLoop(ctx, app, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("agrisense api listening", zap.String("port", cfg.AppPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runReminderLoop runs the daily crop-photo reminder sweep once at startup
// and then once a day until the process exits.
func runReminderLoop(ctx context.Context, app *server.App, logger *zap.Logger) {
	if err := app.CheckDailyReminders(ctx); err != nil {
		logger.Warn("reminder sweep failed", zap.Error(err))
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.CheckDailyReminders(ctx); err != nil {
				logger.Warn("reminder sweep failed", zap.Error(err))
			}
		}
	}
}
