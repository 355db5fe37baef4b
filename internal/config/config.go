package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"userStoreService/internal/db"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds the user store service configuration.
type Config struct {
	HTTP  HTTPConfig
	GRPC  GRPCConfig
	Store StoreConfig
	Log   LogConfig
}

// HTTPConfig contains REST listener settings.
type HTTPConfig struct {
	Address           string // e.g. ":8080"
	ReadHeaderTimeout time.Duration
}

// GRPCConfig contains the gRPC health endpoint settings.
type GRPCConfig struct {
	Enabled bool
	Address string // e.g. ":50051"
}

// StoreConfig selects the user repository backend.
type StoreConfig struct {
	Backend string // memory | sqlite
	Path    string // SQLite DSN, only used by the sqlite backend
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // text | json
}

// LoadGenConfig holds the load generator settings. Defaults reproduce the
// fixed workload: 100 latency iterations, levels 1/10/50/100, 10s per request,
// 1000 memory requests.
type LoadGenConfig struct {
	TargetURL         string
	LatencyIterations int
	ConcurrencyLevels []int
	RequestTimeout    time.Duration
	MemoryRequests    int
	ReadyRetries      int
	ReadyInterval     time.Duration
	Log               LogConfig
}

// Load loads the service configuration from environment variables with defaults.
func Load() (*Config, error) {
	readHeader, err := getEnvDuration("HTTP_READ_HEADER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	grpcEnabled, err := getEnvBool("GRPC_ENABLED", true)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		HTTP: HTTPConfig{
			Address:           getEnv("HTTP_ADDRESS", ":8080"),
			ReadHeaderTimeout: readHeader,
		},
		GRPC: GRPCConfig{
			Enabled: grpcEnabled,
			Address: getEnv("GRPC_ADDRESS", ":50051"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
			Path:    getEnv("DB_PATH", db.DefaultPath),
		},
		Log: loadLogConfig(),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: want %q or %q", c.Store.Backend, BackendMemory, BackendSQLite)
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("HTTP_ADDRESS must not be empty")
	}
	if c.GRPC.Enabled && c.GRPC.Address == "" {
		return fmt.Errorf("GRPC_ADDRESS must not be empty when GRPC_ENABLED is true")
	}
	return c.Log.validate()
}

// LoadLoadGen loads the load generator configuration.
func LoadLoadGen() (*LoadGenConfig, error) {
	var err error
	cfg := &LoadGenConfig{
		TargetURL: getEnv("LOADGEN_TARGET_URL", "http://localhost:8080/api/users"),
		Log:       loadLogConfig(),
	}
	if cfg.LatencyIterations, err = getEnvInt("LOADGEN_LATENCY_ITERATIONS", 100); err != nil {
		return nil, err
	}
	if cfg.ConcurrencyLevels, err = getEnvIntList("LOADGEN_CONCURRENCY_LEVELS", []int{1, 10, 50, 100}); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("LOADGEN_REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MemoryRequests, err = getEnvInt("LOADGEN_MEMORY_REQUESTS", 1000); err != nil {
		return nil, err
	}
	if cfg.ReadyRetries, err = getEnvInt("LOADGEN_READY_RETRIES", 10); err != nil {
		return nil, err
	}
	if cfg.ReadyInterval, err = getEnvDuration("LOADGEN_READY_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *LoadGenConfig) validate() error {
	u, err := url.Parse(c.TargetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid LOADGEN_TARGET_URL %q", c.TargetURL)
	}
	if c.LatencyIterations < 0 || c.MemoryRequests < 0 || c.ReadyRetries < 0 {
		return fmt.Errorf("iteration and request counts must not be negative")
	}
	if len(c.ConcurrencyLevels) == 0 {
		return fmt.Errorf("LOADGEN_CONCURRENCY_LEVELS must name at least one level")
	}
	for _, lvl := range c.ConcurrencyLevels {
		if lvl <= 0 {
			return fmt.Errorf("concurrency levels must be positive, got %d", lvl)
		}
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("LOADGEN_REQUEST_TIMEOUT must be positive")
	}
	return c.Log.validate()
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

func (l LogConfig) validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", l.Format)
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// getEnvIntList parses a comma-separated list such as "1,10,50".
func getEnvIntList(key string, defaultVal []int) ([]int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer list for %s: %w", key, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// String returns a one-line summary of the config.
func (c *Config) String() string {
	grpc := "disabled"
	if c.GRPC.Enabled {
		grpc = c.GRPC.Address
	}
	return fmt.Sprintf("Config{HTTP: %s, gRPC: %s, Store: %s, Log: %s/%s}",
		c.HTTP.Address, grpc, c.Store.Backend, c.Log.Level, c.Log.Format)
}

func (c *LoadGenConfig) String() string {
	return fmt.Sprintf("LoadGenConfig{Target: %s, Latency: %d, Levels: %v, Timeout: %s, Memory: %d}",
		c.TargetURL, c.LatencyIterations, c.ConcurrencyLevels, c.RequestTimeout, c.MemoryRequests)
}
