package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adurham/homelab-sub000/internal/config"
	"github.com/adurham/homelab-sub000/internal/pipeline"
)

func main() {
	os.Exit(run())
}

// run is split from main so deferred cleanup executes before the
// process exit code is set.
func run() (code int) {
	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "keep intermediate corpora and log per-stage timing")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("metrics-relay: unexpected fatal error", "panic", r)
			code = 1
		}
	}()

	slog.Info("metrics-relay starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("metrics-relay: run failed", "class", "config", "err", err)
		return 1
	}
	if *debug {
		cfg.Debug = true
		if cfg.DebugDir == "" {
			cfg.DebugDir = "."
		}
	}
	slog.Info("config loaded",
		"source", cfg.Source.URL,
		"sink", cfg.Sink.URL,
		"labels", len(cfg.Labels),
		"debug", cfg.Debug,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := pipeline.New(cfg).Run(ctx); err != nil {
		slog.Error("metrics-relay: run failed", "class", classify(err), "err", err)
		return 1
	}

	slog.Info("metrics-relay: run succeeded")
	return 0
}

// classify names the failure class for the terminal log line.
func classify(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrConfig):
		return "config"
	case errors.Is(err, pipeline.ErrToken):
		return "token"
	case errors.Is(err, pipeline.ErrSinkRejected):
		return "sink"
	case errors.Is(err, pipeline.ErrNetwork):
		return "network"
	default:
		return "unexpected"
	}
}
