// Package config loads arbor's application configuration.
//
// Configuration is resolved from three layers with increasing
// precedence: built-in defaults, an optional arbor.yaml config file,
// and ARBOR_-prefixed environment variables. Runtime overrides passed
// to Load win over all three.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	// Server configures the HTTP server for serve mode.
	Server ServerConfig `mapstructure:"server"`

	// Logging configures the process loggers.
	Logging LoggingConfig `mapstructure:"logging"`

	// Roots are the named roots inventory jobs can reference.
	Roots map[string]RootConfig `mapstructure:"roots"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the process loggers.
type LoggingConfig struct {
	// Level is the zap level name: debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Profile selects server log encoding: console or structured.
	Profile string `mapstructure:"profile"`
}

// RootConfig describes one named root: which backend serves it and the
// connection settings that backend needs.
type RootConfig struct {
	// Backend is the source backend type: s3, msgraph, gdrive, github.
	Backend string `mapstructure:"backend"`

	// ID is the backend root handle: bucket, drive ID, folder ID, or
	// owner/repo pair.
	ID string `mapstructure:"id"`

	// Path is the slash-rooted base path inside the root.
	Path string `mapstructure:"path"`

	// S3 connection settings.
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`

	// HTTP backend settings (msgraph, github, gdrive).
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`

	// Ref is the branch, tag, or commit for repository roots.
	Ref string `mapstructure:"ref"`

	// RateLimit caps listing requests per second (0 = unlimited).
	RateLimit float64 `mapstructure:"rate_limit"`

	// CredentialsFile points at a service-account key for gdrive roots.
	CredentialsFile string `mapstructure:"credentials_file"`
}

// Defaults for optional configuration fields.
const (
	DefaultHost            = "localhost"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogProfile      = "structured"
)

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	for name, root := range c.Roots {
		if root.Backend == "" {
			return fmt.Errorf("root %q: backend is required", name)
		}
		if root.ID == "" {
			return fmt.Errorf("root %q: id is required", name)
		}
		switch root.Backend {
		case "s3", "msgraph", "gdrive", "github":
		default:
			return fmt.Errorf("root %q: unknown backend %q", name, root.Backend)
		}
	}
	return nil
}
