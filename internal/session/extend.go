// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/ifscenter-tui/internal/api"
)

// DefaultExtendBy is the minimum remaining lifetime after Extend.
const DefaultExtendBy = 30 * time.Minute

// ExtendRequest describes the session being extended.
type ExtendRequest struct {
	Generation uint64
	ExpiryAt   time.Time
	Now        time.Time
}

// ExtendResult is the outcome of an extension. When Token is set the
// manager replaces the stored token and derives the expiry from it;
// otherwise ExpiryAt is applied to the current token.
type ExtendResult struct {
	ExpiryAt     time.Time
	Token        string
	RefreshToken string
}

// Extender decides how a session is extended. Manager.Extend has the same
// contract whichever implementation is configured.
type Extender interface {
	Extend(ctx context.Context, req ExtendRequest) (ExtendResult, error)
}

// SimulatedExtender moves the expiry forward locally without contacting
// the backend. The token itself is unchanged, so the backend will still
// reject it at its real expiry.
type SimulatedExtender struct {
	By time.Duration
}

// Extend returns max(ExpiryAt, Now+By).
func (e SimulatedExtender) Extend(_ context.Context, req ExtendRequest) (ExtendResult, error) {
	by := e.By
	if by <= 0 {
		by = DefaultExtendBy
	}
	next := req.Now.Add(by)
	if req.ExpiryAt.After(next) {
		next = req.ExpiryAt
	}
	return ExtendResult{ExpiryAt: next}, nil
}

// Refresher is the backend call RefreshExtender needs.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*api.RefreshResponse, error)
}

// RefreshExtender exchanges the stored refresh token for a new token pair.
type RefreshExtender struct {
	Client Refresher
	Tokens *TokenStore
}

// Extend calls POST /refresh-token.
func (e *RefreshExtender) Extend(ctx context.Context, _ ExtendRequest) (ExtendResult, error) {
	refresh := e.Tokens.RefreshToken()
	if refresh == "" {
		return ExtendResult{}, ErrNoRefreshToken
	}
	resp, err := e.Client.RefreshToken(ctx, refresh)
	if err != nil {
		return ExtendResult{}, fmt.Errorf("refresh token: %w", err)
	}
	return ExtendResult{Token: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}
