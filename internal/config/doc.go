// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ifscenter.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Backend base URL, timeouts and outbound rate limit
//   - SessionConfig: Idle timeout, warning window, extension policy
//   - StorageConfig: Token persistence backend (file, bolt, sqlite, redis, memory)
//   - LogConfig: Log level and rotation
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (IFSCENTER_*)
//   - ~/.ifscenter/config.toml
//   - ~/.ifscenter/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	idle := cfg.Session.IdleTimeout()
package config
