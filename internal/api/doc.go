// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the IFScenter backend.
//
// A single Client is shared by every caller in the process. It carries the
// default Authorization header, which only the session token store writes
// (see SetAuthToken), and it lets observers register response hooks with
// Intercept. Each response handed to a hook is tagged with the token
// generation that was attached to the request when it was sent, so a hook
// can tell a response for the current token from a late one for a previous
// token.
//
// # Errors
//
//   - *AuthError: the backend rejected a credential exchange (login,
//     register, refresh) or returned 401 on any request.
//   - *TransportError: no response was received.
//   - *APIError: any other non-2xx response.
//
// AuthError and APIError with status 401 both match ErrUnauthorized via
// errors.Is.
package api
