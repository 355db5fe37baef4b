package loadgen

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userStoreService/internal/config"
	"userStoreService/internal/httpapi"
	"userStoreService/internal/testutil"
	"userStoreService/models"
	"userStoreService/repository"
)

func testConfig(target string) *config.LoadGenConfig {
	return &config.LoadGenConfig{
		TargetURL:         target,
		LatencyIterations: 5,
		ConcurrencyLevels: []int{1, 4, 8},
		RequestTimeout:    2 * time.Second,
		MemoryRequests:    20,
		ReadyRetries:      3,
		ReadyInterval:     10 * time.Millisecond,
	}
}

func newService(t *testing.T) (*httptest.Server, *repository.UserRepository) {
	t.Helper()
	repo := repository.NewUserRepository()
	srv := httptest.NewServer(httpapi.NewHandler(repo, testutil.DiscardLogger()))
	t.Cleanup(srv.Close)
	return srv, repo
}

func newRunner(t *testing.T, cfg *config.LoadGenConfig) *Runner {
	t.Helper()
	client, err := NewClient(cfg.TargetURL, NewHTTPClient(16))
	require.NoError(t, err)
	sampler, _ := NewMemorySampler()
	return NewRunner(cfg, client, sampler, testutil.DiscardLogger())
}

func TestClient_RoundTrip(t *testing.T) {
	srv, _ := newService(t)
	client, err := NewClient(srv.URL+"/api/users", nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	u, err := client.CreateUser(ctx, models.User{Name: "ann", Email: "ann@example.com", Age: models.IntPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	require.NotNil(t, u.Age)
	assert.Equal(t, 30, *u.Age)

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	n, err := client.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_StatusError(t *testing.T) {
	srv, _ := newService(t)
	client, err := NewClient(srv.URL+"/api/users", nil)
	require.NoError(t, err)

	_, err = client.CreateUser(context.Background(), models.User{Email: "x@example.com"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "create user", se.Op)
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api/users", nil)
	assert.Error(t, err)
}

func TestNewClient_HealthOnServiceRoot(t *testing.T) {
	c, err := NewClient("http://localhost:8080/api/users/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/health", c.healthURL)
	assert.Equal(t, "http://localhost:8080/api/users", c.usersURL)
}

func TestWaitReady_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := newRunner(t, testConfig(srv.URL+"/api/users"))
	err := r.WaitReady(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestWaitReady_Recovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newRunner(t, testConfig(srv.URL+"/api/users"))
	require.NoError(t, r.WaitReady(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestMeasureLatency(t *testing.T) {
	srv, repo := newService(t)
	cfg := testConfig(srv.URL + "/api/users")
	r := newRunner(t, cfg)

	res := r.MeasureLatency(context.Background())
	assert.Equal(t, cfg.LatencyIterations, res.Iterations)
	assert.Zero(t, res.CreateFailures)
	assert.Zero(t, res.ListFailures)
	assert.Positive(t, res.CreateMean)
	assert.Positive(t, res.ListMean)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(cfg.LatencyIterations), n)
}

func TestMeasureConcurrency(t *testing.T) {
	srv, repo := newService(t)
	cfg := testConfig(srv.URL + "/api/users")
	r := newRunner(t, cfg)

	results := r.MeasureConcurrency(context.Background())
	require.Len(t, results, len(cfg.ConcurrencyLevels))
	total := 0
	for i, res := range results {
		assert.Equal(t, cfg.ConcurrencyLevels[i], res.Level)
		assert.Equal(t, res.Level, res.Succeeded)
		assert.Zero(t, res.Failed)
		assert.Positive(t, res.Total)
		total += res.Level
	}

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, total)
	seen := map[int64]bool{}
	for _, u := range users {
		assert.False(t, seen[u.ID], "duplicate id %d", u.ID)
		seen[u.ID] = true
	}
}

func TestMeasureLevel_TimeoutsAreExcluded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL + "/api/users")
	cfg.RequestTimeout = 50 * time.Millisecond
	r := newRunner(t, cfg)

	res := r.MeasureLevel(context.Background(), 4)
	assert.Equal(t, 4, res.Failed)
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Mean)
}

func TestMeasureMemory(t *testing.T) {
	srv, _ := newService(t)
	cfg := testConfig(srv.URL + "/api/users")
	r := newRunner(t, cfg)

	res := r.MeasureMemory(context.Background())
	assert.Equal(t, cfg.MemoryRequests, res.Requests)
	assert.Zero(t, res.Failed)
	assert.Equal(t, int64(cfg.MemoryRequests), res.ServiceCount)
}

func TestRun_PrintsReport(t *testing.T) {
	srv, repo := newService(t)
	cfg := testConfig(srv.URL + "/api/users")
	r := newRunner(t, cfg)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	want := int64(cfg.LatencyIterations + 1 + 4 + 8 + cfg.MemoryRequests)
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, n)
	assert.Equal(t, want, rep.Memory.ServiceCount)

	var buf bytes.Buffer
	require.NoError(t, rep.Print(&buf))
	out := buf.String()
	assert.Contains(t, out, "POST average response time")
	assert.Contains(t, out, "GET average response time")
	assert.Contains(t, out, "8 concurrent users")
	assert.Contains(t, out, "Total users: 38")
}

func TestRun_NotReady(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	r := newRunner(t, testConfig(srv.URL+"/api/users"))
	rep, err := r.Run(context.Background())
	assert.Nil(t, rep)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestReport_PrintUnavailableCount(t *testing.T) {
	rep := &Report{Target: "http://x", Memory: MemoryResult{Requests: 10, ServiceCount: -1, HeapDelta: 2048}}
	var buf bytes.Buffer
	require.NoError(t, rep.Print(&buf))
	assert.Contains(t, buf.String(), "Total users: unavailable")
	assert.Equal(t, 204.8, rep.Memory.HeapPerRequest())
}

func TestMean(t *testing.T) {
	assert.Zero(t, mean(nil))
	assert.Equal(t, 2*time.Millisecond, mean([]time.Duration{time.Millisecond, 3 * time.Millisecond}))
	assert.Equal(t, 1.5, millis(1500*time.Microsecond))
}
