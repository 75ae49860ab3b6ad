// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a local stand-in for the IFScenter backend's auth
// surface. It keeps users in memory and issues HS256 access tokens, so the
// client can be exercised end to end without the real service.
//
// Routes (all under /api):
//   - POST /register       create an account (201)
//   - POST /login          exchange username or e-mail and password for a token
//   - POST /refresh-token  rotate a refresh token (when enabled)
//   - POST /logout         revoke the presented token
//   - GET  /me             current user
//   - PUT  /profile        update the first name
//   - GET  /system         the user's system, created on first access
//
// Outside /api:
//   - GET /health   liveness
//   - GET /metrics  Prometheus metrics
//
// Error bodies use the backend's envelope: {"error": "...", "details": ...}.
package devserver
