// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/config"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize bounds every JSON request body.
	MaxRequestBodySize = 64 * 1024

	// Version is reported by /health.
	Version = "0.1.0"

	shutdownTimeout = 5 * time.Second
)

type contextKey string

const claimsKey contextKey = "claims"

// ============================================================================
// SERVER
// ============================================================================

// Server is the stand-in backend.
type Server struct {
	cfg     config.DevServerConfig
	logger  zerolog.Logger
	clock   clockwork.Clock
	users   *userStore
	issuer  *issuer
	metrics *metrics
	limiter *RateLimiter
	router  *mux.Router
}

// Option customizes a Server.
type Option func(*Server)

// WithClock sets the clock used for token times.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithRateLimit overrides the per-IP limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.limiter = NewRateLimiter(rps, burst) }
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.users = newUserStore(cost) }
}

// New builds a server from cfg. An empty secret is replaced with a random
// one, which invalidates tokens across restarts.
func New(cfg config.DevServerConfig, logger zerolog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  logger.With().Str("component", "devserver").Logger(),
		clock:   clockwork.NewRealClock(),
		users:   newUserStore(bcrypt.DefaultCost),
		limiter: NewRateLimiter(50, 100),
	}
	for _, opt := range opts {
		opt(s)
	}

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		var err error
		if secret, err = randomSecret(); err != nil {
			return nil, err
		}
		s.logger.Warn().Msg("no devserver secret configured, using a random one")
	}
	accessTTL := cfg.AccessTTL()
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	refreshTTL := cfg.RefreshTTL()
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	s.issuer = newIssuer(secret, accessTTL, refreshTTL, s.clock)
	s.metrics = newMetrics(s.users.count)
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	r.Use(
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger, s.metrics),
	)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()

	public := apiRouter.NewRoute().Subrouter()
	public.Use(RateLimitMiddleware(s.limiter, s.logger))
	public.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	public.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	public.HandleFunc("/refresh-token", s.handleRefresh).Methods(http.MethodPost)

	protected := apiRouter.NewRoute().Subrouter()
	protected.Use(s.requireAuth)
	protected.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/profile", s.handleProfile).Methods(http.MethodPut)
	protected.HandleFunc("/system", s.handleSystem).Methods(http.MethodGet)
	protected.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ConfirmEmail marks a pending account as confirmed.
func (s *Server) ConfirmEmail(email string) bool {
	return s.users.confirm(email)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("devserver: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("SERVER_SHUTDOWN")
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("SERVER_START")
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

// ============================================================================
// AUTH MIDDLEWARE
// ============================================================================

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", nil)
			return
		}
		c, err := s.issuer.verify(strings.TrimSpace(token))
		if err != nil {
			s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("AUTH_DENIED")
			writeError(w, http.StatusUnauthorized, errInvalidToken.Error(), nil)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *claims {
	c, _ := r.Context().Value(claimsKey).(*claims)
	return c
}

// ============================================================================
// HANDLERS
// ============================================================================

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: Version,
		Time:    s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	details := map[string]string{}
	if _, err := mail.ParseAddress(req.Email); err != nil || !strings.Contains(req.Email, "@") {
		details["email"] = "The email address is not valid."
	}
	if msg := passwordProblem(req.Password); msg != "" {
		details["password"] = msg
	}
	if len([]rune(req.FirstName)) > 100 {
		details["firstName"] = "Longer than maximum length 100."
	}
	if len(details) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", details)
		return
	}

	confirmed := !s.cfg.RequireConfirm
	u, err := s.users.create(req.Email, req.FirstName, req.Password, confirmed, s.clock.Now())
	if errors.Is(err, errEmailTaken) {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("register")
		writeError(w, http.StatusInternalServerError, "An error occurred during registration", nil)
		return
	}
	s.users.system(u.ID)
	s.logger.Info().Str("user_id", u.ID).Bool("confirmed", confirmed).Msg("USER_REGISTERED")

	if !confirmed {
		pub := u.public()
		writeJSON(w, http.StatusCreated, api.AuthResponse{
			Message:              "Registration successful! Please check your email to confirm your account.",
			ConfirmationRequired: true,
			User:                 &pub,
		})
		return
	}
	s.writeSession(w, http.StatusCreated, "User registered successfully", "register", u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	details := map[string][]string{}
	if req.Username == "" {
		details["username"] = []string{"Missing data for required field."}
	}
	if req.Password == "" {
		details["password"] = []string{"Missing data for required field."}
	}
	if len(details) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", details)
		return
	}

	u, err := s.users.authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Info().Msg("LOGIN_FAILED")
		writeError(w, http.StatusUnauthorized, err.Error(), nil)
		return
	}
	s.writeSession(w, http.StatusOK, "Login successful", "login", u)
}

// writeSession answers a successful login or register.
func (s *Server) writeSession(w http.ResponseWriter, status int, msg, grant string, u *user) {
	access, err := s.issuer.access(u.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "An error occurred during login", nil)
		return
	}
	pub := u.public()
	resp := api.AuthResponse{
		Message:     msg,
		AccessToken: access,
		AuthMethod:  "jwt",
		User:        &pub,
	}
	if s.cfg.IssueRefresh {
		if resp.RefreshToken, err = s.issuer.newRefresh(u.ID); err != nil {
			s.logger.Error().Err(err).Msg("refresh token")
			writeError(w, http.StatusInternalServerError, "An error occurred during login", nil)
			return
		}
		resp.AuthMethod = "refresh"
	}
	s.metrics.issued.WithLabelValues(grant).Inc()
	writeJSON(w, status, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.IssueRefresh {
		writeError(w, http.StatusBadRequest, "Token refresh is not enabled", nil)
		return
	}
	var req api.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Missing refresh_token in request body", nil)
		return
	}
	userID, err := s.issuer.redeem(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), nil)
		return
	}
	access, err := s.issuer.access(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh token due to server error", nil)
		return
	}
	next, err := s.issuer.newRefresh(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh token due to server error", nil)
		return
	}
	s.metrics.issued.WithLabelValues("refresh").Inc()
	writeJSON(w, http.StatusOK, api.RefreshResponse{
		Message:      "Token refreshed successfully",
		AccessToken:  access,
		RefreshToken: next,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.get(claimsFrom(r).Subject)
	if err != nil {
		writeError(w, http.StatusNotFound, "User profile not found in database", nil)
		return
	}
	writeJSON(w, http.StatusOK, u.public())
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}
	if msg := firstNameProblem(req.FirstName); msg != "" {
		writeError(w, http.StatusBadRequest, "Validation failed", map[string]string{"firstName": msg})
		return
	}
	u, err := s.users.setFirstName(claimsFrom(r).Subject, req.FirstName)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, u.public())
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.users.system(claimsFrom(r).Subject))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	s.issuer.revoke(c)
	s.issuer.dropRefresh(c.Subject)
	s.metrics.revoked.Inc()
	s.logger.Info().Str("user_id", c.Subject).Msg("USER_LOGOUT")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// ============================================================================
// HELPERS
// ============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Request body is required", nil)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{"error": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
