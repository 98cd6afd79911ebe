package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"medical-triage/internal/app"
	"medical-triage/internal/httpserver"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	svc, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build service", "err", err)
		os.Exit(1)
	}

	srv, err := httpserver.New(svc.Handler, svc.Metrics.Handler())
	if err != nil {
		slog.Error("failed to create http server", "err", err)
		os.Exit(1)
	}

	slog.Info("listening", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		slog.Error("http server stopped", "err", err)
		os.Exit(1)
	}
}
