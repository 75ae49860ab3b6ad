// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/ifscenter-tui/internal/storage"
)

// Storage keys.
const (
	TokenKey   = "auth_token"
	RefreshKey = "refresh_token"
)

// HeaderSetter receives the default bearer token for outbound requests.
// *api.Client implements it.
type HeaderSetter interface {
	SetAuthToken(token string, gen uint64)
}

// TokenChange is delivered to TokenStore subscribers.
type TokenChange struct {
	Token      string
	Generation uint64

	// External is set when Sync adopted a value written by another process.
	External bool
}

// TokenStore owns the current token. It is the only writer of the shared
// Authorization header. Subscribers are notified synchronously after every
// assignment, outside the store's locks; they should read Snapshot rather
// than trust the order of notifications.
type TokenStore struct {
	kv     storage.KV
	header HeaderSetter

	// writeMu serializes storage writes with the in-memory update.
	writeMu sync.Mutex

	mu      sync.RWMutex
	token   string
	refresh string
	gen     uint64
	subs    map[uint64]func(TokenChange)
	nextSub uint64
}

// NewTokenStore creates an empty store. header may be nil.
func NewTokenStore(kv storage.KV, header HeaderSetter) *TokenStore {
	return &TokenStore{
		kv:     kv,
		header: header,
		subs:   make(map[uint64]func(TokenChange)),
	}
}

// normalizeToken maps the stored placeholders for "no token" to "".
func normalizeToken(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case "undefined", "null":
		return ""
	}
	return s
}

// Get returns the current token, or "".
func (s *TokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns the current token and its generation.
func (s *TokenStore) Snapshot() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.gen
}

// RefreshToken returns the refresh token, or "".
func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Subscribe registers fn for token changes.
func (s *TokenStore) Subscribe(fn func(TokenChange)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Set persists token, installs it as the default Authorization header and
// notifies subscribers. An empty (or placeholder) token clears the store.
func (s *TokenStore) Set(ctx context.Context, token string) error {
	_, err := s.replace(ctx, token, 0, false)
	return err
}

// Replace is Set conditioned on the current generation being gen. It
// reports whether the token was replaced.
func (s *TokenStore) Replace(ctx context.Context, gen uint64, token string) (bool, error) {
	return s.replace(ctx, token, gen, true)
}

func (s *TokenStore) replace(ctx context.Context, token string, gen uint64, checkGen bool) (bool, error) {
	token = normalizeToken(token)
	if token == "" {
		if checkGen {
			return s.ClearGeneration(ctx, gen)
		}
		return true, s.Clear(ctx)
	}

	s.writeMu.Lock()
	if checkGen {
		s.mu.RLock()
		current := s.gen
		s.mu.RUnlock()
		if current != gen {
			s.writeMu.Unlock()
			return false, nil
		}
	}
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		s.writeMu.Unlock()
		return false, fmt.Errorf("session: persist token: %w", err)
	}
	change, subs := s.assign(token)
	s.writeMu.Unlock()

	notify(subs, change)
	return true, nil
}

// Clear removes the token and the refresh token from storage and memory and
// drops the Authorization header. Clearing an empty store is a no-op: it
// returns nil, spends no generation and calls no subscriber.
func (s *TokenStore) Clear(ctx context.Context) error {
	_, err := s.clear(ctx, 0, false)
	return err
}

// ClearGeneration clears only if the current generation is gen. It reports
// whether the store was cleared.
func (s *TokenStore) ClearGeneration(ctx context.Context, gen uint64) (bool, error) {
	return s.clear(ctx, gen, true)
}

func (s *TokenStore) clear(ctx context.Context, gen uint64, checkGen bool) (bool, error) {
	s.writeMu.Lock()

	s.mu.RLock()
	current, had := s.gen, s.token != "" || s.refresh != ""
	s.mu.RUnlock()
	if checkGen && current != gen {
		s.writeMu.Unlock()
		return false, nil
	}

	// Memory is cleared even when storage fails so a logout always takes
	// effect locally.
	err := errors.Join(
		deleteKey(ctx, s.kv, TokenKey),
		deleteKey(ctx, s.kv, RefreshKey),
	)

	if !had {
		s.writeMu.Unlock()
		return false, err
	}

	s.mu.Lock()
	s.refresh = ""
	s.mu.Unlock()
	change, subs := s.assign("")
	s.writeMu.Unlock()

	notify(subs, change)
	if err != nil {
		return true, fmt.Errorf("session: clear token: %w", err)
	}
	return true, nil
}

// SetRefreshToken persists the refresh token. "" removes it.
func (s *TokenStore) SetRefreshToken(ctx context.Context, refresh string) error {
	refresh = normalizeToken(refresh)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	if refresh == "" {
		err = deleteKey(ctx, s.kv, RefreshKey)
	} else {
		err = s.kv.Set(ctx, RefreshKey, refresh)
	}
	if err != nil {
		return fmt.Errorf("session: persist refresh token: %w", err)
	}

	s.mu.Lock()
	s.refresh = refresh
	s.mu.Unlock()
	return nil
}

// Load reads the persisted token at startup. It installs the header and
// bumps the generation but does not notify; the caller decides what a
// loaded token means.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	token, err := readKey(ctx, s.kv, TokenKey)
	if err != nil {
		return "", fmt.Errorf("session: load token: %w", err)
	}
	refresh, err := readKey(ctx, s.kv, RefreshKey)
	if err != nil {
		return "", fmt.Errorf("session: load refresh token: %w", err)
	}

	s.mu.Lock()
	s.refresh = refresh
	s.mu.Unlock()
	if token == "" {
		return "", nil
	}
	s.assign(token)
	return token, nil
}

// Sync re-reads the persisted token and adopts it if another process
// changed it. Adopted changes are notified like Set. It reports whether
// the in-memory token changed.
func (s *TokenStore) Sync(ctx context.Context) (bool, error) {
	s.writeMu.Lock()

	stored, err := readKey(ctx, s.kv, TokenKey)
	if err != nil {
		s.writeMu.Unlock()
		return false, fmt.Errorf("session: sync token: %w", err)
	}
	if stored == s.Get() {
		s.writeMu.Unlock()
		return false, nil
	}
	if stored == "" {
		s.mu.Lock()
		s.refresh = ""
		s.mu.Unlock()
	}
	change, subs := s.assign(stored)
	change.External = true
	s.writeMu.Unlock()

	notify(subs, change)
	return true, nil
}

// assign updates memory and the header. Caller holds writeMu.
func (s *TokenStore) assign(token string) (TokenChange, []func(TokenChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.gen++
	if s.header != nil {
		s.header.SetAuthToken(token, s.gen)
	}

	subs := make([]func(TokenChange), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return TokenChange{Token: token, Generation: s.gen}, subs
}

func notify(subs []func(TokenChange), change TokenChange) {
	for _, fn := range subs {
		fn(change)
	}
}

func readKey(ctx context.Context, kv storage.KV, key string) (string, error) {
	v, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return normalizeToken(v), nil
}

func deleteKey(ctx context.Context, kv storage.KV, key string) error {
	if err := kv.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
