// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ifscenter-tui/internal/activity"
	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/storage"
)

// fakeBackend answers the auth routes with tokens expiring ttl after the
// fake clock's now.
type fakeBackend struct {
	t      *testing.T
	clock  clockwork.Clock
	server *httptest.Server

	mu            sync.Mutex
	ttl           time.Duration
	seq           int
	loginStatus   int
	systemStatus  int
	meStatus      int
	meUser        string
	issueRefresh  bool
	refresh       string
	confirmSignup bool
	meGate        chan struct{}
	meArrived     chan struct{}

	systemCalls  atomic.Int32
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

func newFakeBackend(t *testing.T, clock clockwork.Clock) *fakeBackend {
	b := &fakeBackend{t: t, clock: clock, ttl: 24 * time.Hour, systemStatus: http.StatusOK, meStatus: http.StatusOK, meUser: "ada"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", b.login)
	mux.HandleFunc("POST /api/register", b.register)
	mux.HandleFunc("POST /api/refresh-token", b.refreshToken)
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutCalls.Add(1)
		reply(w, http.StatusOK, map[string]any{"message": "Logged out"})
	})
	mux.HandleFunc("GET /api/system", func(w http.ResponseWriter, r *http.Request) {
		b.systemCalls.Add(1)
		b.mu.Lock()
		status := b.systemStatus
		b.mu.Unlock()
		if status != http.StatusOK {
			reply(w, status, map[string]any{"error": "Invalid or expired token"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"id": "sys-1", "user_id": "u1"})
	})
	mux.HandleFunc("GET /api/me", b.me)

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) token() string {
	b.mu.Lock()
	b.seq++
	seq, ttl := b.seq, b.ttl
	b.mu.Unlock()

	claims := jwt.RegisteredClaims{
		ID:        strconv.Itoa(seq),
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(b.clock.Now().Add(ttl)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend"))
	require.NoError(b.t, err)
	return tok
}

func (b *fakeBackend) authBody() map[string]any {
	body := map[string]any{
		"access_token": b.token(),
		"user":         map[string]any{"id": "u1", "username": "ada", "email": "ada@example.com"},
	}
	b.mu.Lock()
	if b.issueRefresh {
		b.refresh = "refresh-" + strconv.Itoa(b.seq)
		body["refresh_token"] = b.refresh
	}
	b.mu.Unlock()
	return body
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	status := b.loginStatus
	b.mu.Unlock()
	if status != 0 && status != http.StatusOK {
		reply(w, status, map[string]any{"error": "Invalid email or password"})
		return
	}
	reply(w, http.StatusOK, b.authBody())
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	confirm := b.confirmSignup
	b.mu.Unlock()
	if confirm {
		reply(w, http.StatusCreated, map[string]any{
			"message":               "Registration successful! Please check your email to confirm your account.",
			"confirmation_required": true,
			"user":                  map[string]any{"id": "u2"},
		})
		return
	}
	reply(w, http.StatusCreated, b.authBody())
}

func (b *fakeBackend) refreshToken(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	var req api.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	valid := req.RefreshToken != "" && req.RefreshToken == b.refresh
	b.mu.Unlock()
	if !valid {
		reply(w, http.StatusUnauthorized, map[string]any{"error": "Invalid or expired refresh token"})
		return
	}
	body := b.authBody()
	reply(w, http.StatusOK, map[string]any{
		"message":       "Token refreshed successfully",
		"access_token":  body["access_token"],
		"refresh_token": body["refresh_token"],
	})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	gate, arrived, status, name := b.meGate, b.meArrived, b.meStatus, b.meUser
	b.mu.Unlock()
	if arrived != nil {
		arrived <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if status != http.StatusOK {
		reply(w, status, map[string]any{"error": "Invalid or expired token"})
		return
	}
	reply(w, http.StatusOK, map[string]any{"id": "u-" + name, "username": name, "email": name + "@example.com"})
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	mgr     *Manager
	backend *fakeBackend
	client  *api.Client
	bus     *activity.Bus
	clock   *clockwork.FakeClock
	kv      storage.KV
	metrics *Metrics
}

type harnessOption func(*Config, *Deps)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	backend := newFakeBackend(t, clock)
	client := api.New(backend.server.URL + "/api")
	bus := activity.NewBus()
	kv := storage.NewMemoryStore()
	metrics := NewMetrics(nil)

	cfg := DefaultConfig()
	cfg.WatchExternal = false
	cfg.NotifyServerOnLogout = false
	deps := Deps{Client: client, Storage: kv, Activity: bus, Clock: clock, Metrics: metrics}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	mgr, err := NewManager(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	return &harness{mgr: mgr, backend: backend, client: client, bus: bus, clock: clock, kv: deps.Storage, metrics: metrics}
}

func withConfig(fn func(*Config)) harnessOption {
	return func(c *Config, _ *Deps) { fn(c) }
}

func withStorage(kv storage.KV) harnessOption {
	return func(_ *Config, d *Deps) { d.Storage = kv }
}
