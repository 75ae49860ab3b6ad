// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ifscenter.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.ifscenter/config.toml
//   - ~/.ifscenter/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ifscenter-tui/internal/util"
)

// Storage backend names accepted in storage.backend.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Extension policies accepted in session.extend_policy.
const (
	ExtendSimulated = "simulated"
	ExtendRefresh   = "refresh"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ifscenter configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend API the client talks to
	API APIConfig `toml:"api" json:"api"`

	// Session lifetime and inactivity policy
	Session SessionConfig `toml:"session" json:"session"`

	// Where the bearer token is persisted
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Log output (the TUI owns the terminal, so logs go to a file)
	Log LogConfig `toml:"log" json:"log"`

	UI UIConfig `toml:"ui" json:"ui"`

	// Local stand-in backend (ifscenter devserver)
	DevServer DevServerConfig `toml:"devserver" json:"devserver"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	// BaseURL is the API root including the /api prefix.
	BaseURL string `toml:"base_url" json:"base_url"`

	// TimeoutSecs bounds every request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// RateLimitRPS caps outbound requests per second (0 disables the limiter).
	RateLimitRPS float64 `toml:"rate_limit_rps" json:"rate_limit_rps"`

	// RateBurst is the limiter burst size.
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// SessionConfig controls the client-side session lifecycle.
type SessionConfig struct {
	// IdleTimeoutSecs logs the user out after this long without interaction.
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`

	// WarningWindowSecs is how long before expiry the warning appears.
	WarningWindowSecs int `toml:"warning_window_secs" json:"warning_window_secs"`

	// ExtendMinutes is the minimum remaining lifetime after an extension.
	ExtendMinutes int `toml:"extend_minutes" json:"extend_minutes"`

	// FallbackExpiryHours applies when a token carries no readable exp claim.
	FallbackExpiryHours int `toml:"fallback_expiry_hours" json:"fallback_expiry_hours"`

	// ExtendPolicy is "simulated" (default) or "refresh".
	ExtendPolicy string `toml:"extend_policy" json:"extend_policy"`

	// NotifyServerOnLogout sends POST /logout on explicit sign-out.
	NotifyServerOnLogout bool `toml:"notify_server_on_logout" json:"notify_server_on_logout"`

	// WatchExternal reacts to the token being changed by another process.
	WatchExternal bool `toml:"watch_external" json:"watch_external"`
}

// StorageConfig selects the token persistence backend.
type StorageConfig struct {
	Backend       string `toml:"backend" json:"backend"`
	Path          string `toml:"path" json:"path"`
	RedisURL      string `toml:"redis_url" json:"redis_url"`
	RedisPassword string `toml:"redis_password" json:"redis_password"`
	KeyPrefix     string `toml:"key_prefix" json:"key_prefix"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" json:"compress"`
}

// UIConfig holds TUI preferences.
type UIConfig struct {
	// Theme is "auto", "dark", "light" or "none" (no color).
	Theme string `toml:"theme" json:"theme"`

	// Mouse enables mouse reporting so pointer activity counts as interaction.
	Mouse bool `toml:"mouse" json:"mouse"`

	// AltScreen runs the TUI in the alternate screen buffer.
	AltScreen bool `toml:"alt_screen" json:"alt_screen"`
}

// DevServerConfig configures the local stand-in backend.
type DevServerConfig struct {
	Addr           string `toml:"addr" json:"addr"`
	Secret         string `toml:"secret" json:"secret"`
	AccessTTLMins  int    `toml:"access_ttl_mins" json:"access_ttl_mins"`
	RefreshTTLMins int    `toml:"refresh_ttl_mins" json:"refresh_ttl_mins"`
	IssueRefresh   bool   `toml:"issue_refresh" json:"issue_refresh"`
	RequireConfirm bool   `toml:"require_confirm" json:"require_confirm"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:      "http://localhost:5001/api",
			TimeoutSecs:  15,
			RateLimitRPS: 10,
			RateBurst:    20,
		},
		Session: SessionConfig{
			IdleTimeoutSecs:      30 * 60,
			WarningWindowSecs:    60,
			ExtendMinutes:        30,
			FallbackExpiryHours:  24,
			ExtendPolicy:         ExtendSimulated,
			NotifyServerOnLogout: true,
			WatchExternal:        true,
		},
		Storage: StorageConfig{
			Backend:   BackendFile,
			KeyPrefix: "ifscenter:",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		UI: UIConfig{
			Theme:     "auto",
			Mouse:     true,
			AltScreen: true,
		},
		DevServer: DevServerConfig{
			Addr:           "127.0.0.1:5001",
			AccessTTLMins:  24 * 60,
			RefreshTTLMins: 30 * 24 * 60,
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// IdleTimeout returns the inactivity limit.
func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSecs) * time.Second
}

// WarningWindow returns how long before expiry the warning is raised.
func (s SessionConfig) WarningWindow() time.Duration {
	return time.Duration(s.WarningWindowSecs) * time.Second
}

// ExtendBy returns the minimum lifetime granted by an extension.
func (s SessionConfig) ExtendBy() time.Duration {
	return time.Duration(s.ExtendMinutes) * time.Minute
}

// FallbackExpiry returns the lifetime assumed for tokens without exp.
func (s SessionConfig) FallbackExpiry() time.Duration {
	return time.Duration(s.FallbackExpiryHours) * time.Hour
}

// Timeout returns the per-request timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// AccessTTL returns the devserver access token lifetime.
func (d DevServerConfig) AccessTTL() time.Duration {
	return time.Duration(d.AccessTTLMins) * time.Minute
}

// RefreshTTL returns the devserver refresh token lifetime.
func (d DevServerConfig) RefreshTTL() time.Duration {
	return time.Duration(d.RefreshTTLMins) * time.Minute
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// dirOverride lets tests point the config directory somewhere disposable.
var dirOverride string

// ConfigDir returns the ifscenter configuration directory path.
// IFSCENTER_HOME takes precedence over ~/.ifscenter.
func ConfigDir() (string, error) {
	if dirOverride != "" {
		return dirOverride, nil
	}
	if home := os.Getenv("IFSCENTER_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ifscenter"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files to 0600; they may hold the
// redis password and the devserver signing secret.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// StoragePath resolves storage.path, defaulting per backend inside ConfigDir.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	switch c.Storage.Backend {
	case BackendBolt:
		return filepath.Join(dir, "session.db"), nil
	case BackendSQLite:
		return filepath.Join(dir, "session.sqlite"), nil
	default:
		return filepath.Join(dir, "session.json"), nil
	}
}

// LogPath resolves log.file, defaulting to ConfigDir/ifscenter.log.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ifscenter.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	// A broken file still yields usable defaults; the error is informational.
	cfg = Default()
	out, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	return out, loadErr
}

// finish applies env overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// API
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.API.RateBurst == 0 {
		cfg.API.RateBurst = defaults.API.RateBurst
	}

	// Session
	if cfg.Session.IdleTimeoutSecs == 0 {
		cfg.Session.IdleTimeoutSecs = defaults.Session.IdleTimeoutSecs
	}
	if cfg.Session.WarningWindowSecs == 0 {
		cfg.Session.WarningWindowSecs = defaults.Session.WarningWindowSecs
	}
	if cfg.Session.ExtendMinutes == 0 {
		cfg.Session.ExtendMinutes = defaults.Session.ExtendMinutes
	}
	if cfg.Session.FallbackExpiryHours == 0 {
		cfg.Session.FallbackExpiryHours = defaults.Session.FallbackExpiryHours
	}
	if cfg.Session.ExtendPolicy == "" {
		cfg.Session.ExtendPolicy = defaults.Session.ExtendPolicy
	}
	cfg.Session.ExtendPolicy = strings.ToLower(cfg.Session.ExtendPolicy)

	// Storage
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = defaults.Storage.KeyPrefix
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// DevServer
	if cfg.DevServer.Addr == "" {
		cfg.DevServer.Addr = defaults.DevServer.Addr
	}
	if cfg.DevServer.AccessTTLMins == 0 {
		cfg.DevServer.AccessTTLMins = defaults.DevServer.AccessTTLMins
	}
	if cfg.DevServer.RefreshTTLMins == 0 {
		cfg.DevServer.RefreshTTLMins = defaults.DevServer.RefreshTTLMins
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# ifscenter configuration file\n")
	b.WriteString("# Generated by ifscenter - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL %q, expected scheme://host[/path]", c.API.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("unsupported scheme %q, must be http or https", u.Scheme),
		})
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "api.timeout_secs", Message: "cannot be negative"})
	}
	if c.API.RateLimitRPS < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit_rps", Message: "cannot be negative"})
	}

	// Session
	if c.Session.IdleTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "session.idle_timeout_secs", Message: "cannot be negative"})
	}
	if c.Session.WarningWindowSecs < 0 {
		errs = append(errs, ValidationError{Field: "session.warning_window_secs", Message: "cannot be negative"})
	}
	if c.Session.ExtendMinutes < 0 {
		errs = append(errs, ValidationError{Field: "session.extend_minutes", Message: "cannot be negative"})
	}
	if c.Session.ExtendMinutes > 0 && c.Session.WarningWindowSecs >= c.Session.ExtendMinutes*60 {
		errs = append(errs, ValidationError{
			Field:   "session.warning_window_secs",
			Message: "must be shorter than session.extend_minutes, or every extension re-enters the warning",
		})
	}
	switch c.Session.ExtendPolicy {
	case ExtendSimulated, ExtendRefresh:
	default:
		errs = append(errs, ValidationError{
			Field:   "session.extend_policy",
			Message: fmt.Sprintf("invalid policy '%s', must be one of: simulated, refresh", c.Session.ExtendPolicy),
		})
	}

	// Storage
	switch c.Storage.Backend {
	case BackendFile, BackendBolt, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, ValidationError{Field: "storage.redis_url", Message: "required when storage.backend is redis"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, bolt, sqlite, redis, memory", c.Storage.Backend),
		})
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Log.Level),
		})
	}

	// UI
	switch c.UI.Theme {
	case "auto", "dark", "light", "none":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light, none", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - IFSCENTER_API_URL: overrides api.base_url
//   - IFSCENTER_STORAGE: overrides storage.backend
//   - IFSCENTER_STORAGE_PATH: overrides storage.path
//   - IFSCENTER_REDIS_URL: overrides storage.redis_url
//   - IFSCENTER_REDIS_PASSWORD: overrides storage.redis_password
//   - IFSCENTER_LOG_LEVEL: overrides log.level
//   - IFSCENTER_IDLE_TIMEOUT: overrides session.idle_timeout_secs (seconds or Go duration)
//   - IFSCENTER_EXTEND_POLICY: overrides session.extend_policy
//   - IFSCENTER_DEV_SECRET: overrides devserver.secret
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("IFSCENTER_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("IFSCENTER_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("IFSCENTER_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("IFSCENTER_REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv("IFSCENTER_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("IFSCENTER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("IFSCENTER_IDLE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Session.IdleTimeoutSecs = secs
		} else if d, err := time.ParseDuration(v); err == nil {
			c.Session.IdleTimeoutSecs = int(d.Seconds())
		}
	}
	if v := os.Getenv("IFSCENTER_EXTEND_POLICY"); v != "" {
		c.Session.ExtendPolicy = v
	}
	if v := os.Getenv("IFSCENTER_DEV_SECRET"); v != "" {
		c.DevServer.Secret = v
	}
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "session.idle_timeout_secs").
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// Clone returns a copy of the config. Config holds only value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Storage.RedisPassword != "" {
		safe.Storage.RedisPassword = "[REDACTED]"
	}
	if safe.DevServer.Secret != "" {
		safe.DevServer.Secret = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}

// SetDirForTesting points ConfigDir at dir until the returned func runs.
func SetDirForTesting(dir string) (restore func()) {
	prev := dirOverride
	dirOverride = dir
	return func() { dirOverride = prev }
}
