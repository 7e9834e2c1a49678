package main

import (
	"context"
	"log"
	"os"

	appconfig "github.com/lewisedginton/mood_mate/internal/config"
	"github.com/lewisedginton/mood_mate/internal/server"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

func main() {
	if _, err := appconfig.LoadDotEnv(appconfig.DefaultDotEnvFiles...); err != nil {
		log.Fatalf("Environment file error: %v", err)
	}

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName,
		Output:  os.Stdout,
	})
	cfg.LogConfig(appLogger)

	ctx := context.Background()
	srv, err := server.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", logger.ErrorField(err))
		os.Exit(1)
	}

	appLogger.Info("Starting Dr. Doof's Mood Mate")
	if err := srv.Run(ctx); err != nil {
		appLogger.Error("Server error", logger.ErrorField(err))
		os.Exit(1)
	}
}
