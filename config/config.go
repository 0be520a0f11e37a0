// Package config loads the service configuration from YAML and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/contractsig/auth"
	"github.com/jonwraymond/contractsig/cache"
	"github.com/jonwraymond/contractsig/observe"
	"github.com/jonwraymond/contractsig/remote"
)

// Sentinel errors.
var (
	ErrMissingEnv = errors.New("config: missing required environment variables")
	ErrInvalid    = errors.New("config: invalid configuration")
)

// Driver names.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTRACTSIG_"

// Config is the full service configuration.
type Config struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Cache   CacheConfig    `yaml:"cache"`
	Remote  RemoteConfig   `yaml:"remote"`
	Mirror  MirrorConfig   `yaml:"mirror"`
	Auth    AuthConfig     `yaml:"auth"`
	Observe observe.Config `yaml:"observe"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
}

// CacheConfig configures the local fast cache.
type CacheConfig struct {
	// TTL is the freshness window. Zero disables caching.
	TTL time.Duration `yaml:"ttl"`
}

// RemoteConfig configures the durable remote store.
type RemoteConfig struct {
	Driver  string            `yaml:"driver"` // memory|postgres
	DSN     string            `yaml:"dsn"`
	Migrate bool              `yaml:"migrate"`
	Pool    remote.PoolConfig `yaml:"pool"`

	// Timeout bounds each attempt.
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
	Circuit CircuitConfig `yaml:"circuit"`
}

// RetryConfig configures remote retries.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// CircuitConfig configures the remote circuit breaker. MaxFailures of zero
// disables the breaker.
type CircuitConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// MirrorConfig configures the device-local mirror.
type MirrorConfig struct {
	Driver string `yaml:"driver"` // memory|sqlite
	Path   string `yaml:"path"`
}

// AuthConfig configures caller authentication.
type AuthConfig struct {
	Enabled bool           `yaml:"enabled"`
	Secret  string         `yaml:"secret"`
	JWT     auth.JWTConfig `yaml:"jwt"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			RequestTimeout:    15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      2 << 20,
		},
		Cache: CacheConfig{TTL: cache.DefaultTTL},
		Remote: RemoteConfig{
			Driver:  DriverMemory,
			Timeout: 3 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     time.Second,
			},
			Circuit: CircuitConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second},
		},
		Mirror: MirrorConfig{Driver: DriverMemory},
		Observe: observe.Config{
			ServiceName: "contractsig",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode expands ${VAR} references and decodes YAML strictly onto cfg.
func decode(data []byte, cfg *Config) error {
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("HTTP_ADDR", &cfg.HTTP.Addr)
	str("REMOTE_DRIVER", &cfg.Remote.Driver)
	str("REMOTE_DSN", &cfg.Remote.DSN)
	str("MIRROR_DRIVER", &cfg.Mirror.Driver)
	str("MIRROR_PATH", &cfg.Mirror.Path)
	str("AUTH_SECRET", &cfg.Auth.Secret)
	str("LOG_LEVEL", &cfg.Observe.Logging.Level)
	str("TRACING_EXPORTER", &cfg.Observe.Tracing.Exporter)
	str("METRICS_EXPORTER", &cfg.Observe.Metrics.Exporter)

	if v, ok := lookup(EnvPrefix + "CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sCACHE_TTL: %v", ErrInvalid, EnvPrefix, err)
		}
		cfg.Cache.TTL = d
	}
	if v, ok := lookup(EnvPrefix + "AUTH_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sAUTH_ENABLED: %v", ErrInvalid, EnvPrefix, err)
		}
		cfg.Auth.Enabled = b
	}
	return nil
}

// Validate checks the configuration for contradictions.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.HTTP.Addr == "" {
		bad("http.addr is required")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		bad("http.max_body_bytes must be positive")
	}
	if c.Cache.TTL < 0 || c.Cache.TTL > cache.DefaultPolicy().MaxTTL {
		bad("cache.ttl must be between 0 and %s", cache.DefaultPolicy().MaxTTL)
	}

	switch c.Remote.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Remote.DSN == "" {
			bad("remote.dsn is required for the postgres driver")
		}
	default:
		bad("unknown remote.driver %q", c.Remote.Driver)
	}
	if c.Remote.Timeout < 0 {
		bad("remote.timeout must not be negative")
	}
	if c.Remote.Retry.MaxAttempts < 0 {
		bad("remote.retry.max_attempts must not be negative")
	}
	if c.Remote.Circuit.MaxFailures < 0 {
		bad("remote.circuit.max_failures must not be negative")
	}

	switch c.Mirror.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Mirror.Path == "" {
			bad("mirror.path is required for the sqlite driver")
		}
	default:
		bad("unknown mirror.driver %q", c.Mirror.Driver)
	}

	if c.Auth.Enabled && len(c.Auth.Secret) < 32 {
		bad("auth.secret must be at least 32 bytes when auth is enabled")
	}

	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CachePolicy returns the cache policy for the configured TTL.
func (c Config) CachePolicy() cache.Policy {
	p := cache.DefaultPolicy()
	p.TTL = c.Cache.TTL
	return p
}
