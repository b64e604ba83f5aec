package config

import (
	"fmt"
	"time"
)

// Config is the main toolgate configuration.
type Config struct {
	// DataDir is where the database, tool definitions and logs live.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// DBPath is the sqlite database path.
	DBPath string `json:"db_path" mapstructure:"db_path"`

	// ToolsDir holds hand-authored tool definition files.
	ToolsDir string `json:"tools_dir" mapstructure:"tools_dir"`

	Server    ServerConfig    `json:"server" mapstructure:"server"`
	Upstream  UpstreamConfig  `json:"upstream" mapstructure:"upstream"`
	Retention RetentionConfig `json:"retention" mapstructure:"retention"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds the gateway HTTP server configuration.
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// UpstreamConfig bounds outbound tool calls.
type UpstreamConfig struct {
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Timeout returns the upstream call timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// RetentionConfig controls execution record retention.
type RetentionConfig struct {
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Schedule   string `json:"schedule" mapstructure:"schedule"`
}

// MaxAge returns the retention window.
func (r RetentionConfig) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeDays) * 24 * time.Hour
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns the default configuration. Paths that depend on
// the data dir are filled in by the loader.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3030,
		},
		Upstream: UpstreamConfig{
			TimeoutSeconds: 30,
		},
		Retention: RetentionConfig{
			MaxAgeDays: 30,
			Schedule:   "@hourly",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
	}
}

// Validate checks the configuration for values the service cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.Retention.MaxAgeDays <= 0 {
		return fmt.Errorf("retention max age must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	return nil
}
