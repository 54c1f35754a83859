package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/jmanzanog/market-aggregator/internal/application"
	"github.com/jmanzanog/market-aggregator/internal/bootstrap"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/config"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/ratelimit"
	httpHandler "github.com/jmanzanog/market-aggregator/internal/interfaces/http"
)

// setupLogger configures and returns a structured logger with source information
func setupLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(level),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildServer creates the HTTP server with routes, middleware and CORS
func buildServer(cfg *config.Config, services *bootstrap.Services, limiter httpHandler.RateLimiter, health httpHandler.HealthSnapshot) *http.Server {
	router := gin.Default()
	handler := httpHandler.NewHandler(services.Aggregator, services.Catalog, health)
	httpHandler.SetupRoutes(router, handler, limiter)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", httpHandler.RequestIDHeader},
		ExposedHeaders: []string{httpHandler.RequestIDHeader, "Retry-After"},
	}).Handler(router)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// App wraps the application components for easier testing
type App struct {
	Server        *http.Server
	Services      *bootstrap.Services
	Limiter       *ratelimit.Limiter
	HealthMonitor *application.HealthMonitor
	CancelContext context.CancelFunc
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	if a.HealthMonitor != nil {
		a.HealthMonitor.Stop()
	}
	a.Limiter.Stop()
	a.CancelContext()

	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := a.Services.Close(); err != nil {
		return fmt.Errorf("cache shutdown error: %w", err)
	}
	return nil
}

// newApp wires services and background loops. Loops stop when the returned
// app is shut down.
func newApp(ctx context.Context, cfg *config.Config, services *bootstrap.Services) *App {
	ctx, cancel := context.WithCancel(ctx)

	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitSweepInterval)
	go limiter.Start(ctx)
	go services.SweepCache(ctx, cfg.CacheSweepInterval)

	var monitor *application.HealthMonitor
	var snapshot httpHandler.HealthSnapshot
	if cfg.HealthCheckInterval > 0 {
		monitor = application.NewHealthMonitor(services.Aggregator, cfg.HealthCheckInterval)
		snapshot = monitor
		go monitor.Start(ctx)
	}

	return &App{
		Server:        buildServer(cfg, services, limiter, snapshot),
		Services:      services,
		Limiter:       limiter,
		HealthMonitor: monitor,
		CancelContext: cancel,
	}
}

// run contains the main application logic without os.Exit calls
func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.LogLevel)
	slog.Info("Enabled market data providers", "sources", cfg.EnabledSources())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	app := newApp(ctx, cfg, services)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "host", cfg.ServerHost, "port", cfg.ServerPort)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		_ = services.Close()
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("Server exited gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
