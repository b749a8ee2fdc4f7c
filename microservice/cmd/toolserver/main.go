package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/microservice/toolserver"
)

func main() {
	// Stdout is the MCP transport, so logs go to stderr.
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := toolserver.NewConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration.")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := toolserver.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start tool server.")
	}

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("Tool server exited with error.")
	}
	logger.Info().Msg("Tool server stopped.")
}
