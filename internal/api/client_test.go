// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// CREDENTIAL EXCHANGES
// =============================================================================

func TestLogin_Success(t *testing.T) {
	var got LoginRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.Header.Get(RequestIDHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"message":      "Login successful",
			"access_token": "tok",
			"user":         map[string]any{"id": "u1", "username": "ada", "email": "ada@example.com"},
			"auth_method":  "jwt",
		})
	}))
	defer server.Close()

	c := New(server.URL + "/api")
	resp, err := c.Login(context.Background(), "  Ada@Example.COM ", "Secret123")
	require.NoError(t, err)
	require.Equal(t, "tok", resp.AccessToken)
	require.Equal(t, "u1", resp.User.ID)
	require.Equal(t, "ada@example.com", got.Username)
	require.Equal(t, "Secret123", got.Password)
}

func TestLogin_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid email or password"})
	}))
	defer server.Close()

	_, err := New(server.URL).Login(context.Background(), "ada", "wrong")
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
	require.Equal(t, "Invalid email or password", authErr.Message)
	require.ErrorIs(t, err, ErrUnauthorized)

	msg, diag := UserMessage(err)
	require.Equal(t, "Invalid email or password", msg)
	require.Equal(t, "/login", diag.Path)
}

func TestLogin_ValidationDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": map[string]any{"password": []string{"Missing data for required field."}},
		})
	}))
	defer server.Close()

	_, err := New(server.URL).Login(context.Background(), "ada", "")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, "Validation failed", authErr.Message)
	require.NotErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, []string{"password: Missing data for required field."}, authErr.Diagnostics.Fields())
	require.Contains(t, authErr.Diagnostics.String(), "status: 400")
}

func TestLogin_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful"})
	}))
	defer server.Close()

	_, err := New(server.URL).Login(context.Background(), "ada", "pw")
	require.ErrorIs(t, err, ErrNoToken)
}

func TestRegister_ConfirmationRequired(t *testing.T) {
	var got RegisterRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":               "Registration successful! Please check your email to confirm your account.",
			"confirmation_required": true,
			"user":                  map[string]any{"id": "u2"},
		})
	}))
	defer server.Close()

	_, err := New(server.URL).Register(context.Background(), RegisterRequest{
		FirstName: " Ada ",
		Email:     "ADA@example.com",
		Password:  "Secret123",
	})
	require.ErrorIs(t, err, ErrConfirmationRequired)
	require.Equal(t, "ada@example.com", got.Email)
	require.Equal(t, "Ada", got.FirstName)

	msg, _ := UserMessage(err)
	require.True(t, strings.HasPrefix(msg, "Registration successful!"))
}

func TestRegister_Created(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":      "User registered successfully",
			"access_token": "new-tok",
			"user":         map[string]any{"id": "u3", "email": "b@example.com"},
		})
	}))
	defer server.Close()

	resp, err := New(server.URL).Register(context.Background(), RegisterRequest{Email: "b@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.Equal(t, "new-tok", resp.AccessToken)
}

// =============================================================================
// AUTHORIZATION HEADER AND HOOKS
// =============================================================================

func TestAuthHeader(t *testing.T) {
	var mu sync.Mutex
	var headers []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"id": "s1"})
	}))
	defer server.Close()

	c := New(server.URL)
	ctx := context.Background()

	_, err := c.System(ctx)
	require.NoError(t, err)

	c.SetAuthToken("abc", 1)
	_, err = c.System(ctx)
	require.NoError(t, err)

	c.SetAuthToken("", 2)
	_, err = c.System(ctx)
	require.NoError(t, err)

	require.Equal(t, []string{"", "Bearer abc", ""}, headers)
}

func TestIntercept_ReportsSendGeneration(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid or expired token"})
	}))
	defer server.Close()

	c := New(server.URL)
	c.SetAuthToken("old", 4)

	metas := make(chan ResponseMeta, 1)
	remove := c.Intercept(func(m ResponseMeta) { metas <- m })
	defer remove()

	done := make(chan error, 1)
	go func() {
		_, err := c.Me(context.Background())
		done <- err
	}()

	// The token changes while the request is in flight.
	<-arrived
	c.SetAuthToken("new", 5)
	close(release)

	err := <-done
	require.ErrorIs(t, err, ErrUnauthorized)

	m := <-metas
	require.Equal(t, http.StatusUnauthorized, m.Status)
	require.Equal(t, "/me", m.Path)
	require.False(t, m.CredentialExchange)
	require.Equal(t, uint64(4), m.Generation)
}

func TestIntercept_Remove(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer server.Close()

	c := New(server.URL)
	calls := 0
	remove := c.Intercept(func(ResponseMeta) { calls++ })
	require.Equal(t, 1, c.Interceptors())

	require.NoError(t, c.Logout(context.Background()))
	remove()
	remove()
	require.Equal(t, 0, c.Interceptors())
	require.NoError(t, c.Logout(context.Background()))
	require.Equal(t, 1, calls)
}

func TestIntercept_CredentialExchangeFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid or expired refresh token"})
	}))
	defer server.Close()

	c := New(server.URL)
	var got ResponseMeta
	c.Intercept(func(m ResponseMeta) { got = m })

	_, err := c.RefreshToken(context.Background(), "r1")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, got.CredentialExchange)
	require.Equal(t, "/refresh-token", got.Path)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(url)
	hooked := false
	c.Intercept(func(ResponseMeta) { hooked = true })

	_, err := c.Login(context.Background(), "ada", "pw")
	require.Error(t, err)
	require.True(t, IsTransport(err))
	require.False(t, hooked)

	msg, diag := UserMessage(err)
	require.Contains(t, msg, "Unable to reach the server")
	require.Equal(t, "/login", diag.Path)
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "boom"})
	}))
	defer server.Close()

	_, err := New(server.URL).System(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.Equal(t, "boom", apiErr.Message)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestAPIError_EmptyBodyUsesStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).System(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strings.Repeat("x", MaxResponseSize+10)))
	}))
	defer server.Close()

	_, err := New(server.URL).Me(context.Background())
	require.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestRateLimit_ContextCancelled(t *testing.T) {
	c := New("http://127.0.0.1:1").WithRateLimit(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())

	// first request consumes the only token
	_ = c.Logout(ctx)

	cancel()
	err := c.Logout(ctx)
	require.Error(t, err)
	require.True(t, IsTransport(err))
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ada", "ada"},
		{"  ada  ", "ada"},
		{"Ada", "Ada"},
		{"Ada@Example.COM", "ada@example.com"},
		{"ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeIdentity(tt.in))
		})
	}
}

func TestUserDisplayName(t *testing.T) {
	require.Equal(t, "", (*User)(nil).DisplayName())
	require.Equal(t, "Ada", (&User{FirstName: "Ada", Username: "ada"}).DisplayName())
	require.Equal(t, "ada", (&User{Username: "ada", Email: "a@x"}).DisplayName())
	require.Equal(t, "a@x", (&User{Email: "a@x"}).DisplayName())
}
