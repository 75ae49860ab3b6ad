// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/config"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	srv   *Server
	ts    *httptest.Server
	clock *clockwork.FakeClock
}

func newTestServer(t *testing.T, mutate func(*config.DevServerConfig), opts ...Option) *testServer {
	t.Helper()
	cfg := config.Default().DevServer
	cfg.Secret = "test-secret"
	if mutate != nil {
		mutate(&cfg)
	}
	clock := clockwork.NewFakeClockAt(epoch)
	opts = append([]Option{WithClock(clock), WithBcryptCost(bcrypt.MinCost), WithRateLimit(0, 0)}, opts...)
	srv, err := New(cfg, zerolog.Nop(), opts...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{srv: srv, ts: ts, clock: clock}
}

// call sends a JSON request and decodes the JSON reply into a map.
func (s *testServer) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, email string) map[string]any {
	t.Helper()
	status, body := s.call(t, http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Ada",
		"email":     email,
		"password":  "Secret123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return body
}

// =============================================================================
// REGISTER AND LOGIN
// =============================================================================

func TestRegisterLoginFlow(t *testing.T) {
	s := newTestServer(t, nil)

	reg := s.register(t, "Ada@Example.com")
	require.NotEmpty(t, reg["access_token"])
	user := reg["user"].(map[string]any)
	require.Equal(t, "ada", user["username"])
	require.Equal(t, "ada@example.com", user["email"])
	require.Equal(t, "Ada", user["first_name"])

	// by username and by e-mail
	for _, identity := range []string{"ada", "ADA@example.com"} {
		status, body := s.call(t, http.MethodPost, "/api/login", "", map[string]string{
			"username": identity,
			"password": "Secret123",
		})
		require.Equal(t, http.StatusOK, status, identity)
		require.Equal(t, "Login successful", body["message"])
		require.NotEmpty(t, body["access_token"])
		require.Nil(t, body["refresh_token"])
	}
}

func TestRegister_UniqueUsernames(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "ada@example.com")
	second := s.register(t, "ada@example.org")
	require.Equal(t, "ada1", second["user"].(map[string]any)["username"])
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.call(t, http.MethodPost, "/api/register", "", map[string]string{
		"email":    "not-an-address",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Validation failed", body["error"])
	details := body["details"].(map[string]any)
	require.Contains(t, details, "email")
	require.Equal(t, "Password must be at least 8 characters long", details["password"])

	status, body = s.call(t, http.MethodPost, "/api/register", "", map[string]string{
		"email":    "ada@example.com",
		"password": "alllowercase1",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Password must contain uppercase, lowercase, and numeric characters",
		body["details"].(map[string]any)["password"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "ada@example.com")
	status, body := s.call(t, http.MethodPost, "/api/register", "", map[string]string{
		"email":    "ADA@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Email already exists", body["error"])
}

func TestRegister_ConfirmationRequired(t *testing.T) {
	s := newTestServer(t, func(c *config.DevServerConfig) { c.RequireConfirm = true })

	reg := s.register(t, "ada@example.com")
	require.Equal(t, true, reg["confirmation_required"])
	require.Empty(t, reg["access_token"])

	login := map[string]string{"username": "ada", "password": "Secret123"}
	status, body := s.call(t, http.MethodPost, "/api/login", "", login)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Contains(t, body["error"], "requires confirmation")

	require.True(t, s.srv.ConfirmEmail("ada@example.com"))
	status, _ = s.call(t, http.MethodPost, "/api/login", "", login)
	require.Equal(t, http.StatusOK, status)
}

func TestLogin_Rejected(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "ada@example.com")

	status, body := s.call(t, http.MethodPost, "/api/login", "", map[string]string{"username": "ada", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid email or password", body["error"])

	status, body = s.call(t, http.MethodPost, "/api/login", "", map[string]string{"username": "nobody", "password": "Secret123"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid email or password", body["error"])

	status, body = s.call(t, http.MethodPost, "/api/login", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Validation failed", body["error"])
}

func TestLogin_BadJSON(t *testing.T) {
	s := newTestServer(t, nil)
	resp, err := http.Post(s.ts.URL+"/api/login", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// PROTECTED ROUTES
// =============================================================================

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register(t, "ada@example.com")["access_token"].(string)

	status, body := s.call(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ada", body["username"])

	status, body = s.call(t, http.MethodGet, "/api/system", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), body["parts_count"])
	first := body["id"]

	// stable across calls
	_, body = s.call(t, http.MethodGet, "/api/system", token, nil)
	require.Equal(t, first, body["id"])

	status, body = s.call(t, http.MethodPut, "/api/profile", token, map[string]string{"firstName": "Augusta"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Augusta", body["first_name"])

	status, body = s.call(t, http.MethodPut, "/api/profile", token, map[string]string{"firstName": "  "})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Name cannot be empty.", body["details"].(map[string]any)["firstName"])
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.call(t, http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Missing or invalid authorization header", body["error"])

	status, body = s.call(t, http.MethodGet, "/api/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid or expired token", body["error"])

	// signed with another key
	other, err := New(config.DevServerConfig{Secret: "other"}, zerolog.Nop(), WithClock(s.clock))
	require.NoError(t, err)
	forged, err := other.issuer.access("u1")
	require.NoError(t, err)
	status, _ = s.call(t, http.MethodGet, "/api/me", forged, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestTokenExpiry(t *testing.T) {
	s := newTestServer(t, func(c *config.DevServerConfig) { c.AccessTTLMins = 2 })
	token := s.register(t, "ada@example.com")["access_token"].(string)

	c, err := s.srv.issuer.verify(token)
	require.NoError(t, err)
	require.True(t, epoch.Add(2*time.Minute).Equal(c.ExpiresAt.Time))

	s.clock.Advance(time.Minute)
	status, _ := s.call(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	s.clock.Advance(time.Minute)
	status, body := s.call(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid or expired token", body["error"])
}

func TestLogoutRevokes(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register(t, "ada@example.com")["access_token"].(string)

	status, body := s.call(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Logged out successfully", body["message"])

	status, _ = s.call(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// a fresh login still works
	status, body = s.call(t, http.MethodPost, "/api/login", "", map[string]string{"username": "ada", "password": "Secret123"})
	require.Equal(t, http.StatusOK, status)
	status, _ = s.call(t, http.MethodGet, "/api/me", body["access_token"].(string), nil)
	require.Equal(t, http.StatusOK, status)
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefreshRotation(t *testing.T) {
	s := newTestServer(t, func(c *config.DevServerConfig) { c.IssueRefresh = true })
	reg := s.register(t, "ada@example.com")
	refresh := reg["refresh_token"].(string)
	require.NotEmpty(t, refresh)

	s.clock.Advance(time.Second)
	status, body := s.call(t, http.MethodPost, "/api/refresh-token", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, reg["access_token"], body["access_token"])
	next := body["refresh_token"].(string)
	require.NotEqual(t, refresh, next)

	// single use
	status, body = s.call(t, http.MethodPost, "/api/refresh-token", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid or expired refresh token", body["error"])

	status, _ = s.call(t, http.MethodPost, "/api/refresh-token", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, status)

	// logout drops outstanding refresh tokens
	s.call(t, http.MethodPost, "/api/logout", body["access_token"].(string), nil)
	status, _ = s.call(t, http.MethodPost, "/api/refresh-token", "", map[string]string{"refresh_token": next})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	status, _ := s.call(t, http.MethodPost, "/api/refresh-token", "", map[string]string{"refresh_token": "x"})
	require.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// AMBIENT ROUTES
// =============================================================================

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.call(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])

	s.register(t, "ada@example.com")

	resp, err := http.Get(s.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, `ifscenter_devserver_requests_total{code="201",method="POST",route="/api/register"} 1`)
	require.Contains(t, text, "ifscenter_devserver_users 1")
	require.Contains(t, text, `ifscenter_devserver_tokens_issued_total{grant="register"} 1`)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)
	resp, err := http.Get(s.ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.call(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Not found", body["error"])
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, nil, WithRateLimit(0.001, 2))
	login := map[string]string{"username": "ada", "password": "x"}

	for i := 0; i < 2; i++ {
		status, _ := s.call(t, http.MethodPost, "/api/login", "", login)
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := s.call(t, http.MethodPost, "/api/login", "", login)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "Too many requests", body["error"])
}

func TestRecovery(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:4000", "", "203.0.113.9"},
		{"untrusted proxy header ignored", "203.0.113.9:4000", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy", "127.0.0.1:4000", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"trusted proxy bad header", "127.0.0.1:4000", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			require.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

// =============================================================================
// CLIENT COMPATIBILITY
// =============================================================================

func TestAPIClientAgainstServer(t *testing.T) {
	s := newTestServer(t, nil)
	client := api.New(s.ts.URL + "/api")
	ctx := context.Background()

	reg, err := client.Register(ctx, api.RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, reg.AccessToken)

	_, err = client.Login(ctx, "ada", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)

	resp, err := client.Login(ctx, " ADA@example.com ", "Secret123")
	require.NoError(t, err)
	client.SetAuthToken(resp.AccessToken, 1)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "Ada", me.DisplayName())

	sys, err := client.System(ctx)
	require.NoError(t, err)
	require.Equal(t, me.ID, sys.UserID)
	require.Len(t, sys.Parts, 1)

	updated, err := client.UpdateProfile(ctx, "Augusta")
	require.NoError(t, err)
	require.Equal(t, "Augusta", updated.FirstName)

	require.NoError(t, client.Logout(ctx))
	_, err = client.Me(ctx)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Serve did not return")
	}
}
