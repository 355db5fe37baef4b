package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"userStoreService/internal/config"
	"userStoreService/repository"
)

// NewHandler builds the full HTTP handler: user routes, /health and the
// middleware chain (recover, request id, access log).
func NewHandler(users repository.UserRepositoryI, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	tel := newTelemetry()
	mux := http.NewServeMux()
	NewUserHandler(users, logger).Register(mux, tel.instrument)

	mux.Handle("GET /health", tel.instrument("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := users.Count(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	var h http.Handler = mux
	h = withAccessLog(logger, h)
	h = withRequestID(h)
	h = withRecover(logger, h)
	return h
}

// StartHTTP listens on cfg.HTTP.Address and serves handler (HTTP/1.1 and
// h2c) in the background. It returns the bound address and a shutdown function.
func StartHTTP(cfg *config.Config, handler http.Handler, logger *slog.Logger) (net.Addr, func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	addr := cfg.HTTP.Address
	if addr == "" {
		addr = ":8080"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	srv := &http.Server{
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
		}
	}()

	return lis.Addr(), srv.Shutdown, nil
}
