// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_SessionPolicy(t *testing.T) {
	cfg := Default()

	require.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout())
	require.Equal(t, 60*time.Second, cfg.Session.WarningWindow())
	require.Equal(t, 30*time.Minute, cfg.Session.ExtendBy())
	require.Equal(t, 24*time.Hour, cfg.Session.FallbackExpiry())
	require.Equal(t, ExtendSimulated, cfg.Session.ExtendPolicy)
	require.NoError(t, cfg.Validate())
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
base_url = "https://journal.example.com/api/"

[session]
idle_timeout_secs = 600
extend_policy = "REFRESH"

[storage]
backend = "bolt"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	require.Equal(t, "https://journal.example.com/api", cfg.API.BaseURL)
	require.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout())
	require.Equal(t, ExtendRefresh, cfg.Session.ExtendPolicy)
	require.Equal(t, BackendBolt, cfg.Storage.Backend)
	// untouched sections keep defaults
	require.Equal(t, 60, cfg.Session.WarningWindowSecs)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"storage":{"backend":"sqlite"}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, cfg.Storage.Backend)
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \"1\"\n"), 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_UsesConfigDir(t *testing.T) {
	dir := t.TempDir()
	defer SetDirForTesting(dir)()

	cfg := Default()
	cfg.Storage.Backend = BackendMemory
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendMemory, loaded.Storage.Backend)
}

func TestLoad_NoFileGivesDefaults(t *testing.T) {
	defer SetDirForTesting(t.TempDir())()

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestStoragePath_DefaultsPerBackend(t *testing.T) {
	dir := t.TempDir()
	defer SetDirForTesting(dir)()

	cfg := Default()
	p, err := cfg.StoragePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "session.json"), p)

	cfg.Storage.Backend = BackendBolt
	p, err = cfg.StoragePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "session.db"), p)

	cfg.Storage.Path = "/tmp/elsewhere.db"
	p, err = cfg.StoragePath()
	require.NoError(t, err)
	require.Equal(t, "/tmp/elsewhere.db", p)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url"},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://host/api" }, "api.base_url"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "etcd" }, "storage.backend"},
		{"redis without url", func(c *Config) { c.Storage.Backend = BackendRedis }, "storage.redis_url"},
		{"bad policy", func(c *Config) { c.Session.ExtendPolicy = "forever" }, "session.extend_policy"},
		{"window longer than extension", func(c *Config) { c.Session.WarningWindowSecs = 3600 }, "session.warning_window_secs"},
		{"negative idle", func(c *Config) { c.Session.IdleTimeoutSecs = -1 }, "session.idle_timeout_secs"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("IFSCENTER_API_URL", "https://other.example.com/api")
	t.Setenv("IFSCENTER_STORAGE", "redis")
	t.Setenv("IFSCENTER_REDIS_URL", "localhost:6379")
	t.Setenv("IFSCENTER_IDLE_TIMEOUT", "5m")
	t.Setenv("IFSCENTER_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	require.Equal(t, "https://other.example.com/api", cfg.API.BaseURL)
	require.Equal(t, "redis", cfg.Storage.Backend)
	require.Equal(t, "localhost:6379", cfg.Storage.RedisURL)
	require.Equal(t, 300, cfg.Session.IdleTimeoutSecs)
	require.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides_IdleTimeoutSeconds(t *testing.T) {
	t.Setenv("IFSCENTER_IDLE_TIMEOUT", "90")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, 90, cfg.Session.IdleTimeoutSecs)
}

// =============================================================================
// GET / STRING
// =============================================================================

func TestGet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("session.idle_timeout_secs")
	require.NoError(t, err)
	require.Equal(t, 1800, v)

	v, err = cfg.Get("api.base_url")
	require.NoError(t, err)
	require.Equal(t, cfg.API.BaseURL, v)

	_, err = cfg.Get("session.nope")
	require.Error(t, err)

	_, err = cfg.Get("version.deeper")
	require.Error(t, err)
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Storage.RedisPassword = "hunter2"
	cfg.DevServer.Secret = "signing-secret"

	s := cfg.String()
	require.NotContains(t, s, "hunter2")
	require.NotContains(t, s, "signing-secret")
	require.Contains(t, s, "[REDACTED]")
	// the original is untouched
	require.Equal(t, "hunter2", cfg.Storage.RedisPassword)
}

// =============================================================================
// GLOBAL
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	defer SetDirForTesting(t.TempDir())()
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Storage.Backend = BackendMemory
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
