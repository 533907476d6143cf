package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ripplegate/ripplegate/config"
	"github.com/ripplegate/ripplegate/internal/server"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn("no .env file loaded", "error", err.Error())
	}

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err.Error())
		os.Exit(1)
	}
}
