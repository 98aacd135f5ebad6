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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsestack/pulsestack/collector/internal/api"
	"github.com/pulsestack/pulsestack/collector/internal/config"
	"github.com/pulsestack/pulsestack/collector/internal/scrape"
	"github.com/pulsestack/pulsestack/collector/internal/tsdb"
)

func main() {
	configPath := flag.String("config", "collector.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pulse-collector starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"http_port", cfg.Global.HTTPPort,
		"scrape_interval", cfg.Global.ScrapeInterval,
		"retention", cfg.Storage.Retention,
		"jobs", len(cfg.ScrapeConfigs),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Sample store with background retention eviction.
	store := tsdb.New(cfg.Storage.Retention)
	go store.Run(ctx)

	// Self-metrics on an isolated registry, served at /metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	scrapeMetrics := scrape.NewMetrics(registry)

	// One scrape loop per target; ApplyConfig starts them.
	manager := scrape.NewManager(ctx, store, scrapeMetrics)
	manager.ApplyConfig(cfg)

	if len(cfg.ScrapeConfigs) == 0 {
		slog.Warn("no scrape jobs configured — collector will idle")
	}

	// reload re-reads the config file; /-/reload and the file watcher both
	// go through it.
	reload := func() error {
		updated, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("reload: %w", err)
		}
		manager.ApplyConfig(updated)
		return nil
	}

	// Watch the config file for hot-reload.
	go func() {
		if err := config.Watch(ctx, *configPath, reload); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	apiHandler := api.New(store, manager, reload)
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/-/reload", apiHandler)
	httpMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Global.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Global.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("pulse-collector shutting down")
	manager.Stop()
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
