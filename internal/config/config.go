// Package config defines the Mood Mate server configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/lewisedginton/mood_mate/pkg/config"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	pkgconfig.CommonConfig `yaml:",inline"`

	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"mood-mate"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	HTTP     pkgconfig.HTTPServerConfig `yaml:",inline"`
	Metrics  pkgconfig.MetricsConfig    `yaml:",inline"`
	Sessions SessionConfig              `yaml:",inline"`
	Security SecurityConfig             `yaml:",inline"`
	Archive  ArchiveConfig              `yaml:",inline"`

	// GRPCHealthPort serves grpc.health.v1 when > 0
	GRPCHealthPort int `env:"GRPC_HEALTH_PORT" yaml:"grpc_health_port"`
}

// SessionConfig controls session expiry.
type SessionConfig struct {
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" yaml:"session_idle_timeout" default:"1h"`
	// SweepInterval defaults to IdleTimeout when unset
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" yaml:"session_sweep_interval"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"https://*,http://*"`
	MaxRequestSize         int64    `env:"MAX_REQUEST_SIZE" yaml:"max_request_size" default:"1048576"` // 1MiB
	SecurityHeadersEnabled bool     `env:"SECURITY_HEADERS_ENABLED" yaml:"security_headers_enabled" default:"true"`
}

// Load reads the configuration from CONFIG_FILE (optional) and the environment.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := pkgconfig.GetConfig(&cfg, os.Getenv("CONFIG_FILE"), false); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *AppConfig) Validate() error {
	var result error

	for _, err := range []error{
		c.CommonConfig.Validate(),
		c.HTTP.Validate(),
		c.Metrics.Validate(),
		c.Archive.Validate(),
	} {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if c.Sessions.IdleTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("session_idle_timeout must be greater than 0"))
	}
	if c.Sessions.SweepInterval < 0 {
		result = multierror.Append(result, fmt.Errorf("session_sweep_interval cannot be negative"))
	}
	if c.Security.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}
	if c.GRPCHealthPort < 0 || c.GRPCHealthPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("grpc_health_port must be between 0-65535, got %d", c.GRPCHealthPort))
	}
	if c.GRPCHealthPort > 0 && c.GRPCHealthPort == c.HTTP.Port {
		result = multierror.Append(result, fmt.Errorf("grpc_health_port must differ from http_port"))
	}
	if c.Metrics.ExposeMetrics && c.Metrics.Port == c.HTTP.Port {
		result = multierror.Append(result, fmt.Errorf("metrics_port must differ from http_port"))
	}

	return result
}

// SweepInterval returns how often idle sessions are reaped.
func (c *AppConfig) SweepInterval() time.Duration {
	if c.Sessions.SweepInterval > 0 {
		return c.Sessions.SweepInterval
	}
	return c.Sessions.IdleTimeout
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.LogLevel)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	env := strings.ToLower(c.Environment)
	return env == "development" || env == "dev"
}

// LogConfig logs the effective configuration.
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("environment", c.Environment),
		logger.StringField("log_level", c.LogLevel),
		logger.IntField("http_port", c.HTTP.Port),
		logger.DurationField("session_idle_timeout", c.Sessions.IdleTimeout),
		logger.DurationField("session_sweep_interval", c.SweepInterval()),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
		logger.IntField("grpc_health_port", c.GRPCHealthPort),
		logger.StringField("archive_backend", string(c.Archive.Backend)),
	)
}
