package grpcserver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewUnaryLoggingInterceptor logs method, status code and duration of each
// unary call. Methods listed in quiet are only logged when they fail
// (e.g. health checks polled by orchestrators).
func NewUnaryLoggingInterceptor(logger *slog.Logger, quiet ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]struct{}, len(quiet))
	for _, m := range quiet {
		skip[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level := slog.LevelDebug
		if code != codes.OK {
			level = slog.LevelWarn
		} else if _, ok := skip[info.FullMethod]; ok {
			return resp, err
		}
		logger.LogAttrs(ctx, level, "grpc request",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
