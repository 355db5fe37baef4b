package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"userStoreService/models"
)

// StatusError reports an unexpected HTTP status from the service.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Client talks to the /api/users resource of a running service.
type Client struct {
	http      *http.Client
	usersURL  string
	healthURL string
}

// NewHTTPClient returns an http.Client whose idle pool is large enough for
// the highest concurrency level.
func NewHTTPClient(maxConnsPerHost int) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if maxConnsPerHost > tr.MaxIdleConnsPerHost {
		tr.MaxIdleConnsPerHost = maxConnsPerHost
	}
	if maxConnsPerHost > tr.MaxIdleConns {
		tr.MaxIdleConns = maxConnsPerHost
	}
	return &http.Client{Transport: tr}
}

// NewClient builds a client for targetURL (e.g. http://localhost:8080/api/users).
// The health endpoint is resolved against the same host.
func NewClient(targetURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("parse target url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("target url %q needs scheme and host", targetURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	health := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/health"}
	return &Client{
		http:      httpClient,
		usersURL:  strings.TrimRight(u.String(), "/"),
		healthURL: health.String(),
	}, nil
}

// CreateUser posts u and returns the stored user.
func (c *Client) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	body, err := json.Marshal(struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Age   *int   `json:"age,omitempty"`
	}{u.Name, u.Email, u.Age})
	if err != nil {
		return nil, err
	}
	var out models.User
	if err := c.do(ctx, "create user", http.MethodPost, c.usersURL, body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers fetches every stored user.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.do(ctx, "list users", http.MethodGet, c.usersURL, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUsers fetches the number of stored users.
func (c *Client) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := c.do(ctx, "count users", http.MethodGet, c.usersURL+"/count", nil, http.StatusOK, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Health returns nil when the service answers 200 on /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, c.healthURL, nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte, want int, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		// Drain so the connection returns to the pool.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != want {
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// timed runs fn and returns its wall-clock duration.
func timed(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}
