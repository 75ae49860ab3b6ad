// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	errInvalidToken   = errors.New("Invalid or expired token")
	errInvalidRefresh = errors.New("Invalid or expired refresh token")
)

// claims are the access token claims. Subject is the user ID.
type claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

type refreshGrant struct {
	userID  string
	expires time.Time
}

// issuer signs and verifies access tokens and keeps the refresh and
// revocation tables.
type issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
	refresh map[string]refreshGrant
}

func newIssuer(secret []byte, accessTTL, refreshTTL time.Duration, clock clockwork.Clock) *issuer {
	return &issuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
		revoked:    make(map[string]time.Time),
		refresh:    make(map[string]refreshGrant),
	}
}

// randomSecret returns a fresh 256-bit signing key.
func randomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return b, nil
}

// access signs a token for userID.
func (is *issuer) access(userID string) (string, error) {
	now := is.clock.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(is.accessTTL)),
		},
		Type: "access",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(is.secret)
}

// verify checks signature, expiry and revocation.
func (is *issuer) verify(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return is.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(is.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if c.Type != "access" || c.Subject == "" {
		return nil, errInvalidToken
	}

	is.mu.Lock()
	_, revoked := is.revoked[c.ID]
	is.mu.Unlock()
	if revoked {
		return nil, errInvalidToken
	}
	return c, nil
}

// revoke blocks c until it would have expired anyway.
func (is *issuer) revoke(c *claims) {
	is.mu.Lock()
	defer is.mu.Unlock()
	now := is.clock.Now()
	for jti, exp := range is.revoked {
		if !exp.After(now) {
			delete(is.revoked, jti)
		}
	}
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	is.revoked[c.ID] = exp
}

// newRefresh creates an opaque refresh token for userID.
func (is *issuer) newRefresh(userID string) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	tok := base64.RawURLEncoding.EncodeToString(b)

	is.mu.Lock()
	is.refresh[tok] = refreshGrant{userID: userID, expires: is.clock.Now().Add(is.refreshTTL)}
	is.mu.Unlock()
	return tok, nil
}

// redeem consumes a refresh token. Each one works once.
func (is *issuer) redeem(tok string) (string, error) {
	is.mu.Lock()
	defer is.mu.Unlock()
	g, ok := is.refresh[tok]
	if !ok {
		return "", errInvalidRefresh
	}
	delete(is.refresh, tok)
	if !g.expires.After(is.clock.Now()) {
		return "", errInvalidRefresh
	}
	return g.userID, nil
}

// dropRefresh removes every refresh token held by userID.
func (is *issuer) dropRefresh(userID string) {
	is.mu.Lock()
	defer is.mu.Unlock()
	for tok, g := range is.refresh {
		if g.userID == userID {
			delete(is.refresh, tok)
		}
	}
}
