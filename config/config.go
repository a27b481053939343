package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Sandbox   SandboxConfig       `mapstructure:"sandbox"`
	Remote    RemoteConfig        `mapstructure:"remote"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Languages map[string]Language `mapstructure:"languages"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
	APIPort   int    `mapstructure:"api_port"`
}

// SandboxConfig holds execution engine configuration
type SandboxConfig struct {
	Backend          string `mapstructure:"backend"`
	WorkDir          string `mapstructure:"work_dir"`
	MaxOutputBytes   int    `mapstructure:"max_output_bytes"`
	MaxConcurrent    int    `mapstructure:"max_concurrent"`
	CompileTimeoutMs int    `mapstructure:"compile_timeout_ms"`
	ProfilesFile     string `mapstructure:"profiles_file"`
}

// RemoteConfig holds the hosted execution API settings
type RemoteConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	TimeoutMs        int    `mapstructure:"timeout_ms"`
	RunTimeoutMs     int    `mapstructure:"run_timeout_ms"`
	CompileTimeoutMs int    `mapstructure:"compile_timeout_ms"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// Language holds per-language overrides applied on top of the built-in profile table
type Language struct {
	TimeoutMs        int   `mapstructure:"timeout_ms"`
	MemoryLimitBytes int64 `mapstructure:"memory_limit_bytes"`
	Disabled         bool  `mapstructure:"disabled"`
}

// Backend names
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// DefaultRemoteURL is the public Piston endpoint
const DefaultRemoteURL = "https://emkc.org/api/v2/piston"

// New loads and validates the application configuration
func New() (*Config, error) {
	return Load("")
}

// Load reads configuration from path, or from config.yaml in the usual
// search locations when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PLAYGROUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "http")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.api_port", 5000)

	v.SetDefault("sandbox.backend", BackendLocal)
	v.SetDefault("sandbox.work_dir", filepath.Join(os.TempDir(), "flowstate-playground"))
	v.SetDefault("sandbox.max_output_bytes", 1<<20)
	v.SetDefault("sandbox.max_concurrent", 8)
	v.SetDefault("sandbox.compile_timeout_ms", 10000)
	v.SetDefault("sandbox.profiles_file", "")

	v.SetDefault("remote.base_url", DefaultRemoteURL)
	v.SetDefault("remote.timeout_ms", 15000)
	v.SetDefault("remote.run_timeout_ms", 3000)
	v.SetDefault("remote.compile_timeout_ms", 10000)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.APIPort < 0 {
		return fmt.Errorf("server.api_port must not be negative, got: %d", c.Server.APIPort)
	}

	switch c.Sandbox.Backend {
	case BackendLocal:
		if c.Sandbox.WorkDir == "" {
			return fmt.Errorf("sandbox.work_dir is required for the local backend")
		}
	case BackendRemote:
		if c.Remote.BaseURL == "" {
			return fmt.Errorf("remote.base_url is required for the remote backend")
		}
		if c.Remote.TimeoutMs <= 0 {
			return fmt.Errorf("remote.timeout_ms must be positive, got: %d", c.Remote.TimeoutMs)
		}
	default:
		return fmt.Errorf("unsupported sandbox.backend: %s", c.Sandbox.Backend)
	}

	if c.Sandbox.MaxOutputBytes <= 0 {
		return fmt.Errorf("sandbox.max_output_bytes must be positive, got: %d", c.Sandbox.MaxOutputBytes)
	}

	if c.Sandbox.MaxConcurrent <= 0 {
		return fmt.Errorf("sandbox.max_concurrent must be positive, got: %d", c.Sandbox.MaxConcurrent)
	}

	if c.Sandbox.CompileTimeoutMs <= 0 {
		return fmt.Errorf("sandbox.compile_timeout_ms must be positive, got: %d", c.Sandbox.CompileTimeoutMs)
	}

	for name, lang := range c.Languages {
		if lang.TimeoutMs < 0 {
			return fmt.Errorf("languages.%s.timeout_ms must not be negative, got: %d", name, lang.TimeoutMs)
		}
		if lang.MemoryLimitBytes < 0 {
			return fmt.Errorf("languages.%s.memory_limit_bytes must not be negative, got: %d", name, lang.MemoryLimitBytes)
		}
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// CompileTimeout returns the compile step budget as a duration
func (c *Config) CompileTimeout() time.Duration {
	return time.Duration(c.Sandbox.CompileTimeoutMs) * time.Millisecond
}

// RemoteTimeout returns the bound on one remote execution call
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutMs) * time.Millisecond
}
