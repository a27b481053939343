package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "http",
			HTTPPort:  8080,
			APIPort:   5000,
		},
		Sandbox: SandboxConfig{
			Backend:          BackendLocal,
			WorkDir:          os.TempDir(),
			MaxOutputBytes:   1 << 20,
			MaxConcurrent:    4,
			CompileTimeoutMs: 10000,
		},
		Remote: RemoteConfig{
			BaseURL:   DefaultRemoteURL,
			TimeoutMs: 15000,
		},
		Logging: LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
		Languages: map[string]Language{
			"python": {TimeoutMs: 5000},
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ValidConfig", mutate: func(*Config) {}},
		{
			name:    "InvalidServerTransport",
			mutate:  func(c *Config) { c.Server.Transport = "invalid" },
			wantErr: "invalid server.transport",
		},
		{
			name:    "UnsupportedBackend",
			mutate:  func(c *Config) { c.Sandbox.Backend = "docker" },
			wantErr: "unsupported sandbox.backend",
		},
		{
			name:    "LocalBackendWithoutWorkDir",
			mutate:  func(c *Config) { c.Sandbox.WorkDir = "" },
			wantErr: "sandbox.work_dir is required",
		},
		{
			name: "RemoteBackendWithoutURL",
			mutate: func(c *Config) {
				c.Sandbox.Backend = BackendRemote
				c.Remote.BaseURL = ""
			},
			wantErr: "remote.base_url is required",
		},
		{
			name: "RemoteBackendWithoutTimeout",
			mutate: func(c *Config) {
				c.Sandbox.Backend = BackendRemote
				c.Remote.TimeoutMs = 0
			},
			wantErr: "remote.timeout_ms must be positive",
		},
		{
			name:    "InvalidOutputCap",
			mutate:  func(c *Config) { c.Sandbox.MaxOutputBytes = 0 },
			wantErr: "sandbox.max_output_bytes must be positive",
		},
		{
			name:    "InvalidConcurrency",
			mutate:  func(c *Config) { c.Sandbox.MaxConcurrent = -1 },
			wantErr: "sandbox.max_concurrent must be positive",
		},
		{
			name:    "InvalidCompileTimeout",
			mutate:  func(c *Config) { c.Sandbox.CompileTimeoutMs = 0 },
			wantErr: "sandbox.compile_timeout_ms must be positive",
		},
		{
			name:    "NegativeLanguageTimeout",
			mutate:  func(c *Config) { c.Languages["python"] = Language{TimeoutMs: -5} },
			wantErr: "languages.python.timeout_ms",
		},
		{
			name:    "InvalidLoggingMode",
			mutate:  func(c *Config) { c.Logging.Mode = "invalid_mode" },
			wantErr: "invalid logging.mode",
		},
		{
			name:    "InvalidLogLevel",
			mutate:  func(c *Config) { c.Logging.Level = "invalid_level" },
			wantErr: "invalid logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  transport: stdio
sandbox:
  backend: remote
  max_concurrent: 2
remote:
  base_url: http://piston.internal/api/v2
  run_timeout_ms: 2500
languages:
  python:
    timeout_ms: 4000
    memory_limit_bytes: 134217728
  php:
    disabled: true
logging:
  mode: development
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, BackendRemote, cfg.Sandbox.Backend)
	assert.Equal(t, 2, cfg.Sandbox.MaxConcurrent)
	assert.Equal(t, "http://piston.internal/api/v2", cfg.Remote.BaseURL)
	assert.Equal(t, 2500, cfg.Remote.RunTimeoutMs)
	assert.Equal(t, 4000, cfg.Languages["python"].TimeoutMs)
	assert.Equal(t, int64(134217728), cfg.Languages["python"].MemoryLimitBytes)
	assert.True(t, cfg.Languages["php"].Disabled)

	// defaults still apply to keys the file leaves out
	assert.Equal(t, 1<<20, cfg.Sandbox.MaxOutputBytes)
	assert.Equal(t, 15*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, 10*time.Second, cfg.CompileTimeout())
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, BackendLocal, cfg.Sandbox.Backend)
	assert.Equal(t, DefaultRemoteURL, cfg.Remote.BaseURL)
	assert.Equal(t, 8, cfg.Sandbox.MaxConcurrent)
	assert.NotEmpty(t, cfg.Sandbox.WorkDir)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PLAYGROUND_SANDBOX_BACKEND", "remote")
	t.Setenv("PLAYGROUND_LOGGING_LEVEL", "warn")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, cfg.Sandbox.Backend)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  mode: verbose\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation error")
}
