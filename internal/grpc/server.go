package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"userStoreService/internal/config"
	"userStoreService/repository"
)

const (
	// UserServiceName is the service name reported alongside the overall ("") status.
	UserServiceName = "userstore.v1.Users"
	probeInterval   = 5 * time.Second
	probeTimeout    = 2 * time.Second
)

// newServer builds a gRPC server exposing grpc.health.v1.Health and reflection.
func newServer(users repository.UserRepositoryI, logger *slog.Logger) (*grpc.Server, *HealthReporter) {
	srv := grpc.NewServer(grpc.UnaryInterceptor(NewUnaryLoggingInterceptor(logger, healthpb.Health_Check_FullMethodName)))
	hr := NewHealthReporter(users, logger)
	healthpb.RegisterHealthServer(srv, hr.Server())
	reflection.Register(srv)
	return srv, hr
}

// StartGRPC starts the gRPC health endpoint on cfg.GRPC.Address and returns
// the bound address and a shutdown function. The store is probed periodically
// and the serving status follows it.
func StartGRPC(cfg *config.Config, users repository.UserRepositoryI, logger *slog.Logger) (net.Addr, func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	srv, hr := newServer(users, logger)
	probeCtx, stopProbe := context.WithCancel(context.Background())
	hr.Check(probeCtx)
	go hr.Run(probeCtx, probeInterval)

	go func() {
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server stopped", "error", err)
		}
	}()

	return lis.Addr(), func(ctx context.Context) error {
		stopProbe()
		hr.Shutdown()
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

// HealthReporter keeps the gRPC health status in line with the user store.
type HealthReporter struct {
	hs     *health.Server
	users  repository.UserRepositoryI
	logger *slog.Logger
}

func NewHealthReporter(users repository.UserRepositoryI, logger *slog.Logger) *HealthReporter {
	return &HealthReporter{hs: health.NewServer(), users: users, logger: logger}
}

// Server returns the underlying health service for registration.
func (h *HealthReporter) Server() *health.Server {
	return h.hs
}

// Check probes the store once and updates the serving status.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if _, err := h.users.Count(ctx); err != nil {
		h.logger.Warn("user store probe failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(UserServiceName, st)
	return st
}

// Run probes every interval until ctx is done.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (h *HealthReporter) Shutdown() {
	h.hs.Shutdown()
}
