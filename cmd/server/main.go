package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rl1809/pantry-tracker/internal/app"
	"github.com/rl1809/pantry-tracker/internal/config"
	"github.com/rl1809/pantry-tracker/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	logCfg := logger.Config{
		IsDevelopment: cfg.IsDevelopment(),
		Encoding:      cfg.Logger.Encoding,
		Level:         cfg.Logger.Level,
	}
	if cfg.IsDevelopment() {
		logCfg.Level = "debug"
	}
	appLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("failed to initialize", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}

	if err := application.Run(ctx); err != nil {
		appLogger.Fatal("server stopped with error", zap.Error(err))
	}
}
