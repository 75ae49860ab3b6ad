// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultFallbackExpiry is used when a token carries no readable expiry.
const DefaultFallbackExpiry = 24 * time.Hour

// ErrNoExpiry means the token's claims decoded but carry no exp.
var ErrNoExpiry = errors.New("session: token has no exp claim")

var unverifiedParser = jwt.NewParser()

// ClaimsExpiry reads the exp claim without checking the signature.
// SECURITY: The result is for scheduling only. The backend is the only
// party that verifies tokens.
func ClaimsExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	_, _, err := unverifiedParser.ParseUnverified(token, claims)
	// An unknown or missing alg leaves the claims decoded.
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		claims, err = payloadClaims(token, err)
		if err != nil {
			return time.Time{}, err
		}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// payloadClaims decodes the second dot-separated segment on its own, for
// tokens the parser rejects as a whole (a missing signature segment, an
// unreadable header). parseErr is returned when that fails too.
func payloadClaims(token string, parseErr error) (*jwt.RegisteredClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, parseErr
	}
	data, err := unverifiedParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, parseErr
	}
	claims := &jwt.RegisteredClaims{}
	if err := json.Unmarshal(data, claims); err != nil {
		return nil, parseErr
	}
	return claims, nil
}

// ExpiryAt returns the token's expiry, or now+24h if it cannot be read.
func ExpiryAt(token string, now time.Time) time.Time {
	return ExpiryAtWithFallback(token, now, DefaultFallbackExpiry)
}

// ExpiryAtWithFallback is ExpiryAt with a configurable fallback window.
func ExpiryAtWithFallback(token string, now time.Time, fallback time.Duration) time.Time {
	exp, err := ClaimsExpiry(token)
	if err != nil {
		return now.Add(fallback)
	}
	return exp
}
