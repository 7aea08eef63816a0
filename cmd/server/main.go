package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/api"
	"github.com/david/grantdesk/internal/app"
	"github.com/david/grantdesk/internal/auth"
	"github.com/david/grantdesk/internal/config"
	"github.com/david/grantdesk/internal/db"
)

func main() {
	if err := run(); err != nil {
		zap.L().Error("server exited", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return err
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Printf("init logger: %v", err)
		return err
	}
	defer zap.L().Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		return err
	}

	syncService, err := app.NewSyncService(cfg, pool)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(pool, cfg.JWTSecret)
	if err != nil {
		return err
	}

	srv := api.NewServer(db.NewStore(pool), authService, syncService, app.NewCompleter(cfg.Anthropic), api.Options{
		CronSecret:  cfg.CronSecret,
		CORSOrigins: cfg.CORS.Origins,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		zap.L().Info("server starting", zap.String("addr", addr))
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
