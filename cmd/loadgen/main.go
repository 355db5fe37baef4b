package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"userStoreService/internal/config"
	"userStoreService/internal/loadgen"
	"userStoreService/internal/logging"
)

func main() {
	cfg, err := config.LoadLoadGen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", "config", cfg.String())

	client, err := loadgen.NewClient(cfg.TargetURL, loadgen.NewHTTPClient(slices.Max(cfg.ConcurrencyLevels)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	sampler, err := loadgen.NewMemorySampler()
	if err != nil {
		logger.Warn("rss sampling disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run failures are reported but do not change the exit status.
	rep, err := loadgen.NewRunner(cfg, client, sampler, logger).Run(ctx)
	if err != nil {
		logger.Error("load test failed", "error", err)
	}
	if rep != nil {
		if err := rep.Print(os.Stdout); err != nil {
			logger.Error("print report", "error", err)
		}
	}
}
