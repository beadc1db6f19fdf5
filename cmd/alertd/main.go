package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opus-domini/alertd/internal/alerts"
	"github.com/opus-domini/alertd/internal/api"
	"github.com/opus-domini/alertd/internal/config"
	"github.com/opus-domini/alertd/internal/events"
	"github.com/opus-domini/alertd/internal/metrics"
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

func serve() int {
	cfg, err := loadConfigFn()
	if err != nil {
		slog.Error("config load failed", "err", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "path", cfg.ConfigPath, "err", err)
		return 1
	}
	initLogger(cfg.LogLevel)
	for _, key := range cfg.UnknownKeys {
		slog.Warn("unknown config key ignored", "key", key, "path", cfg.ConfigPath)
	}

	handler, closeAPI, err := newServerHandler(cfg, currentVersionFn())
	if err != nil {
		slog.Error("store init failed", "err", err)
		return 1
	}
	return run(cfg, handler, closeAPI)
}

// newServerHandler wires the store, event hub and metrics behind the API
// routes. The returned func ends open event streams.
func newServerHandler(cfg config.Config, version string) (http.Handler, func(), error) {
	eventHub := events.NewHub()
	st, err := alerts.New(cfg.Alerts, alerts.Options{
		Publish: func(eventType string, payload map[string]any) {
			eventHub.Publish(events.NewEvent(eventType, payload))
		},
	})
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	h := api.Register(mux, api.Options{
		Store:   st,
		Events:  eventHub,
		Metrics: metrics.New(st.Len),
		Version: version,
	})
	slog.Debug("alert store ready", "alerts", st.Len())
	return api.RequestLog(nil, mux), h.Close, nil
}

type commandContext struct {
	stdout io.Writer
	stderr io.Writer
}

const shutdownTimeout = 10 * time.Second

// run serves until SIGINT or SIGTERM, then drains in-flight requests.
// onShutdown runs when draining starts.
func run(cfg config.Config, handler http.Handler, onShutdown func()) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if onShutdown != nil {
		server.RegisterOnShutdown(onShutdown)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()
	slog.Info("alertd started",
		"listen", cfg.ListenAddr,
		"config", cfg.ConfigPath,
		"log_level", cfg.LogLevel,
		"alerts", len(cfg.Alerts),
	)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "err", err)
			return 1
		}
	}
	slog.Info("alertd stopped")
	return 0
}

// initLogger installs a text handler on stderr. Config.Validate has already
// rejected unknown levels, so a parse failure falls back to info.
func initLogger(level string) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}
