// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Identity      IdentityConfig      `yaml:"identity"`
	Parser        ParserConfig        `yaml:"parser"`
	Storage       StorageConfig       `yaml:"storage"`
	Queries       QueriesConfig       `yaml:"queries"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxImportBytes caps the body of an import request.
	MaxImportBytes int64 `yaml:"max_import_bytes"`
}

// IdentityConfig describes bearer token verification for mutating routes.
type IdentityConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Issuer     string   `yaml:"issuer"`
	Audience   string   `yaml:"audience"`
	Secret     string   `yaml:"secret"`
	Algorithms []string `yaml:"algorithms"`
	// WriteRole, when set, must appear in the token's roles claim.
	WriteRole string `yaml:"write_role"`
}

// ParserConfig tunes the structural parser.
type ParserConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// StorageConfig selects and configures the microapp cache backend.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	File     FileConfig     `yaml:"file"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	// Breaker guards the redis and postgres drivers.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig describes the circuit breaker in front of remote stores.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// FileConfig describes the directory-backed store.
type FileConfig struct {
	Directory string `yaml:"directory"`
}

// RedisConfig describes the Redis-backed store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// PostgresConfig describes the PostgreSQL-backed store.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

// QueriesConfig describes how microapp queries are checked on import.
type QueriesConfig struct {
	// Strict rejects an import whose queries do not match any configured spec.
	Strict bool         `yaml:"strict"`
	Specs  []SpecSource `yaml:"specs"`
}

// SpecSource maps a service ID to an OpenAPI spec file.
type SpecSource struct {
	ServiceID string `yaml:"service_id"`
	BaseURL   string `yaml:"base_url"`
	SpecFile  string `yaml:"spec_file"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`
	// LogFormat is json (default) or console.
	LogFormat string        `yaml:"log_format"`
	Tracing   TracingConfig `yaml:"tracing"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxImportBytes:  8 << 20,
		},
		Identity: IdentityConfig{
			Algorithms: []string{"HS256"},
		},
		Parser: ParserConfig{
			MaxDepth: 30,
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
			File:   FileConfig{Directory: "./data/microapps"},
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "sdui"},
			Postgres: PostgresConfig{
				MaxConns:        10,
				ConnMaxLifetime: 5 * time.Minute,
				Migrate:         true,
			},
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				SuccessThreshold: 2,
				OpenTimeout:      30 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates the result. An empty path skips the file and starts from
// Defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.MaxImportBytes <= 0 {
		errs = append(errs, "server.max_import_bytes must be positive")
	}
	if c.Identity.Enabled {
		if c.Identity.Secret == "" {
			errs = append(errs, "identity.secret is required when identity is enabled")
		}
		if c.Identity.Issuer == "" {
			errs = append(errs, "identity.issuer is required when identity is enabled")
		}
	}
	if c.Parser.MaxDepth < 1 {
		errs = append(errs, "parser.max_depth must be at least 1")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.File.Directory == "" {
			errs = append(errs, "storage.file.directory is required for the file driver")
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, "storage.redis.addr is required for the redis driver")
		}
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, "storage.postgres.dsn is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.driver %q is not one of memory, file, redis, postgres", c.Storage.Driver))
	}

	for i, s := range c.Queries.Specs {
		if s.ServiceID == "" || s.SpecFile == "" {
			errs = append(errs, fmt.Sprintf("queries.specs[%d] needs service_id and spec_file", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads SDUI_* environment variables and overrides config
// values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SDUI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SDUI_IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("SDUI_IDENTITY_SECRET"); v != "" {
		cfg.Identity.Secret = v
		cfg.Identity.Enabled = true
	}
	if v := os.Getenv("SDUI_PARSER_MAX_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			cfg.Parser.MaxDepth = depth
		}
	}
	if v := os.Getenv("SDUI_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SDUI_STORAGE_DIRECTORY"); v != "" {
		cfg.Storage.File.Directory = v
	}
	if v := os.Getenv("SDUI_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("SDUI_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("SDUI_QUERIES_STRICT"); v != "" {
		if strict, err := strconv.ParseBool(v); err == nil {
			cfg.Queries.Strict = strict
		}
	}
	if v := os.Getenv("SDUI_OBSERVABILITY_LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
	if v := os.Getenv("SDUI_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
