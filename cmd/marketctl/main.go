package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jmanzanog/market-aggregator/internal/bootstrap"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/config"
)

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// loadServices builds the aggregator from the environment, the same way the
// server does.
func loadServices(ctx context.Context) (marketService, io.Closer, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	services, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return services.Aggregator, services, nil
}

func main() {
	if err := newRootCmd(loadServices).Execute(); err != nil {
		os.Exit(1)
	}
}
