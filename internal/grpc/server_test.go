package grpcserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"userStoreService/internal/config"
	"userStoreService/models"
	"userStoreService/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyRepo fails Count while failing is set.
type flakyRepo struct {
	*repository.UserRepository
	failing bool
}

func (f *flakyRepo) Count(ctx context.Context) (int64, error) {
	if f.failing {
		return 0, errors.New("store down")
	}
	return f.UserRepository.Count(ctx)
}

func dialBufconn(t *testing.T, users repository.UserRepositoryI) (healthpb.HealthClient, *HealthReporter) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, hr := newServer(users, discardLogger())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn), hr
}

func TestHealth_FollowsStore(t *testing.T) {
	repo := &flakyRepo{UserRepository: repository.NewUserRepository()}
	client, hr := dialBufconn(t, repo)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hr.Check(ctx))
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: UserServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	repo.failing = true
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, hr.Check(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestHealth_UnknownService(t *testing.T) {
	client, hr := dialBufconn(t, repository.NewUserRepository())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hr.Check(ctx)

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealthReporter_Shutdown(t *testing.T) {
	client, hr := dialBufconn(t, repository.NewUserRepository())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hr.Check(ctx)
	hr.Shutdown()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestStartGRPC(t *testing.T) {
	cfg := &config.Config{GRPC: config.GRPCConfig{Enabled: true, Address: "127.0.0.1:0"}}
	repo := repository.NewUserRepository()
	_, err := repo.Create(context.Background(), &models.User{Name: "a", Email: "a@example.com"})
	require.NoError(t, err)

	addr, shutdown, err := StartGRPC(cfg, repo, discardLogger())
	require.NoError(t, err)

	conn, err := grpc.NewClient(addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	require.NoError(t, shutdown(ctx))
}

func TestUnaryLoggingInterceptor_PassesThrough(t *testing.T) {
	interceptor := NewUnaryLoggingInterceptor(discardLogger(), "/quiet")

	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/quiet"},
		func(ctx context.Context, req any) (any, error) { return 123, nil })
	require.NoError(t, err)
	assert.Equal(t, 123, resp)

	wantErr := status.Error(codes.Unavailable, "down")
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/loud"},
		func(ctx context.Context, req any) (any, error) { return nil, wantErr })
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
