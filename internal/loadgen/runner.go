package loadgen

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"userStoreService/internal/config"
	"userStoreService/models"
)

// LatencyResult holds the sequential create/list timings.
type LatencyResult struct {
	Iterations     int
	CreateMean     time.Duration
	ListMean       time.Duration
	CreateFailures int
	ListFailures   int
}

// ConcurrencyResult holds one level of the concurrency sweep.
type ConcurrencyResult struct {
	Level     int
	Succeeded int
	Failed    int
	Mean      time.Duration // mean latency of successful requests
	Total     time.Duration // wall clock for the whole batch
}

// MemoryResult holds the client-side memory growth over the memory phase.
type MemoryResult struct {
	Requests     int
	Failed       int
	HeapDelta    int64
	RSSDelta     int64
	ServiceCount int64 // -1 if the count could not be fetched
}

// HeapPerRequest is the heap growth divided by the number of requests.
func (m MemoryResult) HeapPerRequest() float64 {
	if m.Requests == 0 {
		return 0
	}
	return float64(m.HeapDelta) / float64(m.Requests)
}

// RSSPerRequest is the RSS growth divided by the number of requests.
func (m MemoryResult) RSSPerRequest() float64 {
	if m.Requests == 0 {
		return 0
	}
	return float64(m.RSSDelta) / float64(m.Requests)
}

// Runner drives the measurement phases against one service.
type Runner struct {
	cfg     *config.LoadGenConfig
	client  *Client
	sampler *MemorySampler
	logger  *slog.Logger
}

func NewRunner(cfg *config.LoadGenConfig, client *Client, sampler *MemorySampler, logger *slog.Logger) *Runner {
	if cfg == nil {
		panic("config is required")
	}
	return &Runner{cfg: cfg, client: client, sampler: sampler, logger: logger}
}

// WaitReady polls /health until it answers 200 or the retries run out.
func (r *Runner) WaitReady(ctx context.Context) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.ReadyInterval), uint64(r.cfg.ReadyRetries)),
		ctx,
	)
	return backoff.RetryNotify(func() error {
		reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
		return r.client.Health(reqCtx)
	}, b, func(err error, next time.Duration) {
		r.logger.Info("service not ready", "error", err, "retry_in", next)
	})
}

// MeasureLatency times cfg.LatencyIterations sequential create+list pairs.
func (r *Runner) MeasureLatency(ctx context.Context) LatencyResult {
	res := LatencyResult{Iterations: r.cfg.LatencyIterations}
	creates := make([]time.Duration, 0, res.Iterations)
	lists := make([]time.Duration, 0, res.Iterations)

	for i := 0; i < res.Iterations; i++ {
		if ctx.Err() != nil {
			break
		}
		age := 20 + i%50
		d, err := timed(func() error {
			_, err := r.client.CreateUser(ctx, models.User{
				Name:  fmt.Sprintf("test%d", i),
				Email: fmt.Sprintf("test%d@example.com", i),
				Age:   &age,
			})
			return err
		})
		if err != nil {
			res.CreateFailures++
			r.logger.Error("create failed", "phase", "latency", "iteration", i, "error", err)
		} else {
			creates = append(creates, d)
		}

		d, err = timed(func() error {
			_, err := r.client.ListUsers(ctx)
			return err
		})
		if err != nil {
			res.ListFailures++
			r.logger.Error("list failed", "phase", "latency", "iteration", i, "error", err)
		} else {
			lists = append(lists, d)
		}
	}

	res.CreateMean = mean(creates)
	res.ListMean = mean(lists)
	return res
}

// MeasureConcurrency runs MeasureLevel for every configured level in order.
func (r *Runner) MeasureConcurrency(ctx context.Context) []ConcurrencyResult {
	out := make([]ConcurrencyResult, 0, len(r.cfg.ConcurrencyLevels))
	for _, level := range r.cfg.ConcurrencyLevels {
		if ctx.Err() != nil {
			break
		}
		out = append(out, r.MeasureLevel(ctx, level))
	}
	return out
}

// MeasureLevel fires level creates at once. Each request has its own timeout;
// failures are logged and left out of the mean.
func (r *Runner) MeasureLevel(ctx context.Context, level int) ConcurrencyResult {
	latencies := make([]time.Duration, level)
	ok := make([]bool, level)

	var g errgroup.Group
	g.SetLimit(level)
	start := time.Now()
	for i := 0; i < level; i++ {
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
			defer cancel()
			d, err := timed(func() error {
				_, err := r.client.CreateUser(reqCtx, models.User{
					Name:  fmt.Sprintf("concurrent%d", i),
					Email: fmt.Sprintf("concurrent%d@example.com", i),
				})
				return err
			})
			if err != nil {
				r.logger.Error("request failed", "phase", "concurrency", "level", level, "request", i, "error", err)
				return nil
			}
			latencies[i], ok[i] = d, true
			return nil
		})
	}
	_ = g.Wait()

	res := ConcurrencyResult{Level: level, Total: time.Since(start)}
	succeeded := make([]time.Duration, 0, level)
	for i, d := range latencies {
		if ok[i] {
			succeeded = append(succeeded, d)
		}
	}
	res.Succeeded = len(succeeded)
	res.Failed = level - res.Succeeded
	res.Mean = mean(succeeded)
	return res
}

// MeasureMemory samples client memory around cfg.MemoryRequests creates.
func (r *Runner) MeasureMemory(ctx context.Context) MemoryResult {
	res := MemoryResult{Requests: r.cfg.MemoryRequests, ServiceCount: -1}

	runtime.GC()
	before, err := r.sampler.Sample()
	if err != nil {
		r.logger.Warn("memory sample failed", "error", err)
	}

	age := 25
	for i := 0; i < res.Requests; i++ {
		if ctx.Err() != nil {
			res.Failed += res.Requests - i
			break
		}
		_, err := r.client.CreateUser(ctx, models.User{
			Name:  fmt.Sprintf("memory%d", i),
			Email: fmt.Sprintf("memory%d@example.com", i),
			Age:   &age,
		})
		if err != nil {
			res.Failed++
			r.logger.Error("create failed", "phase", "memory", "request", i, "error", err)
		}
	}

	runtime.GC()
	after, err := r.sampler.Sample()
	if err != nil {
		r.logger.Warn("memory sample failed", "error", err)
	}
	res.HeapDelta = delta(before.HeapAlloc, after.HeapAlloc)
	res.RSSDelta = delta(before.RSS, after.RSS)

	countCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()
	if n, err := r.client.CountUsers(countCtx); err != nil {
		r.logger.Error("count failed", "phase", "memory", "error", err)
	} else {
		res.ServiceCount = n
	}
	return res
}

// Run waits for the service and executes every phase in order.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("service not ready at %s: %w", r.cfg.TargetURL, err)
	}
	r.logger.Info("service ready, starting load", "target", r.cfg.TargetURL)

	rep := &Report{Target: r.cfg.TargetURL}
	rep.Latency = r.MeasureLatency(ctx)
	rep.Concurrency = r.MeasureConcurrency(ctx)
	rep.Memory = r.MeasureMemory(ctx)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}
