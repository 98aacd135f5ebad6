package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulsestack/pulsestack/app/internal/api"
	"github.com/pulsestack/pulsestack/app/internal/config"
	"github.com/pulsestack/pulsestack/app/internal/metrics"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pulse-app starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"http_port", cfg.App.HTTPPort,
		"service_name", cfg.App.ServiceName,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New(cfg.App.ServiceName)

	mux := http.NewServeMux()
	// The exposition route lives at /metrics/ — trailing slash included.
	// Scrapers must be configured with the exact same path.
	mux.Handle("/metrics/", m.Handler())
	mux.Handle("/", m.Middleware(api.New(), api.Routes()...))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.App.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("pulse-app shutting down")
	srv.Shutdown(context.Background()) //nolint:errcheck
}
