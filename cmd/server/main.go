package main

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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dongjiahong/qa-system/internal/di"
	"github.com/dongjiahong/qa-system/internal/infra"
	"github.com/dongjiahong/qa-system/internal/infra/config"
	"github.com/dongjiahong/qa-system/internal/infra/logger"
	"github.com/dongjiahong/qa-system/internal/infra/telemetry"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Telemetry (must precede the logger so the otelslog
	// bridge picks up the registered provider)
	otelCfg := telemetry.ConfigFromEnv()
	shutdown, err := telemetry.InitProvider(context.Background(), otelCfg)
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// 3. Initialize Logger
	log := logger.NewWithOTel(otelCfg.Enabled)
	slog.SetDefault(log)

	// 4. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 5. Wire Components
	components, err := di.NewApplicationComponents(cfg, dbPool, log)
	if err != nil {
		log.Error("failed to wire components", "error", err)
		os.Exit(1)
	}

	// 6. Start Worker
	if cfg.WorkerEnabled {
		components.Worker.Start()
		defer components.Worker.Stop()
	}

	// 7. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	components.Handler.RegisterRoutes(e)

	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	// 8. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting_server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
