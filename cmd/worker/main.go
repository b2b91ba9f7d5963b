package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/gym-management/internal/app/worker"
	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := worker.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize worker app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("worker app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("worker app stopped gracefully")
}
