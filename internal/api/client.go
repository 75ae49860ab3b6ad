// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the local development backend.
	DefaultBaseURL = "http://localhost:5001/api"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize caps response bodies.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 1 << 20

	// RequestIDHeader carries the per-request correlation ID.
	RequestIDHeader = "X-Request-ID"
)

// UserAgent is sent on every request.
var UserAgent = "ifscenter-tui"

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger

	authMu    sync.RWMutex
	authToken string
	authGen   uint64

	hookMu   sync.Mutex
	hooks    map[uint64]func(ResponseMeta)
	nextHook uint64
}

// New creates a client for the backend rooted at baseURL (including the
// /api prefix).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     zerolog.Nop(),
		hooks:      make(map[uint64]func(ResponseMeta)),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithRateLimit caps outbound requests. rps <= 0 disables the limit.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithLogger sets the request logger.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Login exchanges a username (or e-mail) and password for a token.
func (c *Client) Login(ctx context.Context, identity, secret string) (*AuthResponse, error) {
	var out AuthResponse
	req := LoginRequest{Username: NormalizeIdentity(identity), Password: secret}
	if _, err := c.do(ctx, call{method: http.MethodPost, path: "/login", body: req, out: &out, credential: true}); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &AuthError{Message: ErrNoToken.Error(), Err: ErrNoToken}
	}
	return &out, nil
}

// Register creates an account. When the backend requires e-mail
// confirmation the returned error wraps ErrConfirmationRequired and carries
// the backend's message.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (*AuthResponse, error) {
	r.Username = NormalizeIdentity(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)

	var out AuthResponse
	status, err := c.do(ctx, call{method: http.MethodPost, path: "/register", body: r, out: &out, credential: true})
	if err != nil {
		return nil, err
	}
	if out.ConfirmationRequired {
		msg := out.Message
		if msg == "" {
			msg = "Registration successful! Please check your email to confirm your account."
		}
		return nil, &AuthError{Status: status, Message: msg, Err: ErrConfirmationRequired}
	}
	if out.AccessToken == "" {
		return nil, &AuthError{Status: status, Message: ErrNoToken.Error(), Err: ErrNoToken}
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var out RefreshResponse
	req := RefreshRequest{RefreshToken: refreshToken}
	if _, err := c.do(ctx, call{method: http.MethodPost, path: "/refresh-token", body: req, out: &out, credential: true}); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &AuthError{Message: ErrNoToken.Error(), Err: ErrNoToken}
	}
	return &out, nil
}

// System fetches the caller's system. It doubles as the token check at
// startup.
func (c *Client) System(ctx context.Context) (*SystemInfo, error) {
	var out SystemInfo
	if _, err := c.do(ctx, call{method: http.MethodGet, path: "/system", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the caller's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if _, err := c.do(ctx, call{method: http.MethodGet, path: "/me", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the caller's first name.
func (c *Client) UpdateProfile(ctx context.Context, firstName string) (*User, error) {
	var out User
	body := ProfileUpdate{FirstName: strings.TrimSpace(firstName)}
	if _, err := c.do(ctx, call{method: http.MethodPut, path: "/profile", body: body, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the backend the token is no longer in use.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/logout"})
	return err
}

// =============================================================================
// REQUEST PIPELINE
// =============================================================================

type call struct {
	method     string
	path       string
	body       any
	out        any
	credential bool
}

// do sends one request and returns the response status. Hooks run for every
// response that produced a status line.
func (c *Client) do(ctx context.Context, cl call) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &TransportError{Method: cl.method, Path: cl.path, Err: err}
	}

	var reader io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("api: encode %s: %w", cl.path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return 0, fmt.Errorf("api: build %s: %w", cl.path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, gen := c.AuthToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// SECURITY: Never log headers or bodies; they carry credentials.
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Str("method", cl.method).Str("path", cl.path).Err(err).Msg("request failed")
		return 0, &TransportError{Method: cl.method, Path: cl.path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("request")

	c.notify(ResponseMeta{
		Method:             cl.method,
		Path:               cl.path,
		Status:             resp.StatusCode,
		RequestID:          requestID,
		Generation:         gen,
		CredentialExchange: cl.credential,
	})

	data, err := readBody(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("api: read %s: %w", cl.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, c.errorFor(cl, resp.StatusCode, requestID, data)
	}

	if cl.out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, cl.out); err != nil {
			return resp.StatusCode, fmt.Errorf("api: decode %s: %w", cl.path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) errorFor(cl call, status int, requestID string, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	diag := &Diagnostics{
		Status:    status,
		Path:      cl.path,
		RequestID: requestID,
		Details:   body.Details,
	}
	if cl.credential || status == http.StatusUnauthorized {
		return &AuthError{Status: status, Message: msg, Diagnostics: diag}
	}
	return &APIError{Status: status, Message: msg, Diagnostics: diag}
}

func readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// IsTransport reports whether err means no response was received.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
