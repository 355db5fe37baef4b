package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"userStoreService/internal/config"
	"userStoreService/internal/db"
	grpcserver "userStoreService/internal/grpc"
	"userStoreService/internal/httpapi"
	"userStoreService/internal/logging"
	"userStoreService/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.String())

	users, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Start HTTP
	httpAddr, shutdownHTTP, err := httpapi.StartHTTP(cfg, httpapi.NewHandler(users, logger), logger)
	if err != nil {
		logger.Error("start http", "error", err)
		os.Exit(1)
	}
	logger.Info("http server listening", "addr", httpAddr.String())

	// Start gRPC health endpoint
	shutdownGRPC := func(context.Context) error { return nil }
	if cfg.GRPC.Enabled {
		grpcAddr, stop, err := grpcserver.StartGRPC(cfg, users, logger)
		if err != nil {
			logger.Error("start grpc", "error", err)
			_ = shutdownHTTP(context.Background())
			os.Exit(1)
		}
		shutdownGRPC = stop
		logger.Info("grpc health server listening", "addr", grpcAddr.String())
	}

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logger.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownGRPC(ctx); err != nil {
		logger.Error("grpc shutdown", "error", err)
	}
	if err := shutdownHTTP(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}

// openStore builds the configured user store and a function releasing it.
func openStore(cfg *config.Config) (repository.UserRepositoryI, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		d, err := db.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLUserRepository(d), func() {
			if err := d.Close(); err != nil {
				slog.Error("close db", "error", err)
			}
		}, nil
	default:
		return repository.NewUserRepository(), func() {}, nil
	}
}
