// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore keeps keys in Redis under a common prefix.
type RedisStore struct {
	client redisClient
	prefix string
}

// NewRedisStore connects to addr, which may be host:port or a redis:// URL.
// The connection is verified with PING.
func NewRedisStore(ctx context.Context, addr, password, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("storage: redis backend requires an address")
	}

	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("storage: parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr, DB: 0}
	}
	if password != "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage: redis ping %s: %w", opts.Addr, err)
	}
	return newRedisStore(client, prefix), nil
}

func newRedisStore(client redisClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get returns the value for key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", wrapRedis(err)
	}
	return v, nil
}

// Set stores value under key with no expiry; the session layer owns lifetime.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return wrapRedis(s.client.Set(ctx, s.prefix+key, value, 0).Err())
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return wrapRedis(s.client.Del(ctx, s.prefix+key).Err())
}

// Close closes the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func wrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("storage: redis: %w", err)
}
