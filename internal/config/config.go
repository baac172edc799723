package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the ez.coins client configuration.
type Config struct {
	App           AppConfig           `yaml:"app" validate:"required"`
	Server        ServerConfig        `yaml:"server" validate:"required"`
	Observability ObservabilityConfig `yaml:"observability"`
	Remote        RemoteConfig        `yaml:"remote" validate:"required"`
	Credential    CredentialConfig    `yaml:"credential" validate:"required"`
	Cache         CacheConfig         `yaml:"cache"`
	Routes        RoutesConfig        `yaml:"routes"`
}

// AppConfig identifies the client.
type AppConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" validate:"required,oneof=dev staging prod"`
}

// ServerConfig holds the local HTTP listener settings.
type ServerConfig struct {
	Host            string `yaml:"host" validate:"required"`
	Port            int    `yaml:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ObservabilityConfig holds log/trace/metrics settings.
type ObservabilityConfig struct {
	Log     LogConfig     `yaml:"log"`
	Trace   TraceConfig   `yaml:"trace"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// TraceConfig configures OpenTelemetry tracing.
type TraceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RemoteConfig points at the ez.coins GraphQL API.
type RemoteConfig struct {
	GraphQLURL  string `yaml:"graphql_url" validate:"required,url"`
	Timeout     string `yaml:"timeout"`
	MaxAttempts uint   `yaml:"max_attempts"`
}

// CredentialConfig selects where the session token and user ID are persisted.
type CredentialConfig struct {
	Backend string                `yaml:"backend" validate:"required,oneof=file redis memory"`
	Profile string                `yaml:"profile" validate:"required"`
	Dir     string                `yaml:"dir" validate:"required_if=Backend file"`
	Redis   RedisCredentialConfig `yaml:"redis"`
}

// RedisCredentialConfig holds Redis connection parameters for credential storage.
type RedisCredentialConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CacheConfig bounds the in-memory session cache.
type CacheConfig struct {
	Size int `yaml:"size" validate:"omitempty,min=1"`
}

// RoutesConfig names the two routes the guard redirects to.
type RoutesConfig struct {
	AnonymousEntry       string `yaml:"anonymous_entry"`
	AuthenticatedLanding string `yaml:"authenticated_landing"`
}

// ParseDuration parses a duration string with a fallback default.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Load reads the base YAML configuration, optionally merges an environment overlay,
// applies defaults and validates the result.
func Load(basePath string, envPath ...string) (*Config, error) {
	data, err := os.ReadFile(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(envPath) > 0 && envPath[0] != "" {
		envData, err := os.ReadFile(envPath[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read env config: %w", err)
		}
		if err := yaml.Unmarshal(envData, &cfg); err != nil {
			return nil, fmt.Errorf("failed to merge env config: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of the whole configuration tree.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Credential.Backend == "redis" && c.Credential.Redis.Addr == "" {
		return fmt.Errorf("invalid config: credential.redis.addr is required for the redis backend")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Routes.AnonymousEntry == "" {
		c.Routes.AnonymousEntry = "/login"
	}
	if c.Routes.AuthenticatedLanding == "" {
		c.Routes.AuthenticatedLanding = "/home"
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 64
	}
	if c.Remote.MaxAttempts == 0 {
		c.Remote.MaxAttempts = 3
	}
	if c.Credential.Redis.Prefix == "" {
		c.Credential.Redis.Prefix = "ezcoins:credential:"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}
