// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"
)

// MemoryStore is a process-local KV. It also implements Watcher so tests can
// simulate another writer; notifications are delivered asynchronously.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]string
	watchers map[string]map[int]func(string)
	nextID   int
	closed   bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]string),
		watchers: make(map[string]map[int]func(string)),
	}
}

// Get returns the value for key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.data[key] = value
	s.mu.Unlock()

	s.notify(key)
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	_, existed := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if existed {
		s.notify(key)
	}
	return nil
}

// Close drops all data and watchers.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = map[string]string{}
	s.watchers = map[string]map[int]func(string){}
	return nil
}

// Watch registers fn for changes to key until ctx is done.
func (s *MemoryStore) Watch(ctx context.Context, key string, fn func(value string)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	id := s.nextID
	s.nextID++
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]func(string))
	}
	s.watchers[key][id] = fn
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[key], id)
		s.mu.Unlock()
	}()
	return nil
}

// notify delivers the value current at delivery time to every watcher of key.
func (s *MemoryStore) notify(key string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.watchers[key]))
	for _, fn := range s.watchers[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		go func(fn func(string)) {
			s.mu.Lock()
			v := s.data[key]
			s.mu.Unlock()
			fn(v)
		}(fn)
	}
}
