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

	"github.com/pulsestack/pulsestack/board/internal/api"
	"github.com/pulsestack/pulsestack/board/internal/auth"
	"github.com/pulsestack/pulsestack/board/internal/config"
	"github.com/pulsestack/pulsestack/board/internal/dashboard"
	"github.com/pulsestack/pulsestack/board/internal/datasource"
	"github.com/pulsestack/pulsestack/board/internal/store"
	"github.com/pulsestack/pulsestack/board/internal/ws"
)

func main() {
	configPath := flag.String("config", "board.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve UI static files from this directory; leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pulse-board starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"http_port", cfg.Board.HTTPPort,
		"db_path", cfg.Board.DBPath,
		"stream_period", cfg.Board.StreamPeriod,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(cfg.Board.DBPath)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	authSvc := auth.New(st, cfg.Board.SessionTTL)
	if err := authSvc.SeedAdmin(cfg.Board.AdminUser, cfg.Board.AdminPassword); err != nil {
		slog.Error("failed to seed admin account", "err", err)
		os.Exit(1)
	}

	dsSvc := datasource.New(st)
	dashSvc := dashboard.NewService(st)
	renderer := dashboard.NewRenderer(dashSvc, dsSvc)

	// WebSocket hub — re-renders subscribed dashboards on an interval.
	hub := ws.New(renderer, cfg.Board.StreamPeriod)
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(authSvc, dsSvc, dashSvc, renderer, cfg.Board.SessionTTL))
	httpMux.Handle("/ws/dashboards/", authSvc.Middleware(hub))

	// Optional: serve a pre-built UI from a local directory, with SPA
	// fallback to index.html for unknown paths.
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Board.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Board.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("pulse-board shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
