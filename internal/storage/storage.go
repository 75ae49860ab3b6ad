// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
)

// Backend names understood by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("storage: key not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("storage: store closed")
)

// KV is an opaque string key/value store. Implementations are safe for
// concurrent use. Deleting a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Watcher is implemented by stores that can report changes made outside
// this process. fn receives the value current at delivery time ("" when the
// key is absent). Watch returns once the watch is armed; it stops when ctx
// is cancelled.
type Watcher interface {
	Watch(ctx context.Context, key string, fn func(value string)) error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Path          string
	RedisURL      string
	RedisPassword string
	KeyPrefix     string
}

// Open constructs the backend named in opts.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return NewFileStore(opts.Path)
	case BackendBolt:
		return NewBoltStore(opts.Path)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.Path)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL, opts.RedisPassword, opts.KeyPrefix)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
