// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists small string values (the bearer token and the
// optional refresh token) for ifscenter.
//
// Every backend implements KV. Backends that can observe writes made by
// other processes also implement Watcher.
//
// # Backends
//
//   - MemoryStore: process-local map, used by tests and --ephemeral runs
//   - FileStore: JSON document written atomically, watched with fsnotify
//   - BoltStore: single bbolt bucket
//   - SQLiteStore: one table in a pure-Go SQLite database
//   - RedisStore: prefixed keys in Redis, for shared terminals
//
// # Usage
//
//	kv, err := storage.Open(ctx, storage.Options{Backend: storage.BackendFile, Path: p})
//	if err != nil {
//	    return err
//	}
//	defer kv.Close()
package storage
