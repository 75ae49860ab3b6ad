// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the ifscenter packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//
// Display:
//   - TruncateWidth, PadRight: column-aware string fitting for the TUI
//   - FormatCountdown, FormatRemaining: session time rendering
//
// Logging:
//   - Fingerprint: stable short hash for secrets (tokens never hit the log)
//
// # Usage
//
//	// Persist the token store without risking a torn write
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Log which token is active without logging the token
//	log.Info().Str("token", util.Fingerprint(tok)).Msg("token set")
package util
