package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/plgd-dev/coapmsg/internal/cli"
	"github.com/plgd-dev/coapmsg/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("cannot load configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}
	logger := cfg.NewLogger(os.Stderr)

	app, err := cli.New(cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		logger.Error("cannot create application", slog.String("error", err.Error()))
		os.Exit(2)
	}
	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("command failed", slog.String("error", err.Error()))
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}
