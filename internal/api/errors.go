// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any 401 response.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConfirmationRequired is returned by Register when the account was
	// created but must be confirmed by e-mail before a token is issued.
	ErrConfirmationRequired = errors.New("account confirmation required")

	// ErrNoToken is returned when a successful credential exchange carries
	// no access token.
	ErrNoToken = errors.New("server returned no access token")

	// ErrResponseTooLarge is returned when a body exceeds MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")
)

// AuthError is a backend rejection of a credential exchange, or a 401.
type AuthError struct {
	Status      int
	Message     string
	Diagnostics *Diagnostics
	Err         error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *AuthError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// TransportError means no response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("unable to reach the server: %s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the user.
func (e *TransportError) UserMessage() string {
	return "Unable to reach the server. Check your connection and try again."
}

// APIError is any other non-2xx response.
type APIError struct {
	Status      int
	Message     string
	Diagnostics *Diagnostics
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap maps 401 to ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// UserMessage returns the short text for err suitable for display, and the
// diagnostics attached to it, if any.
func UserMessage(err error) (string, *Diagnostics) {
	if err == nil {
		return "", nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message, authErr.Diagnostics
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.UserMessage(), &Diagnostics{Path: transportErr.Path, Cause: transportErr.Err.Error()}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message, apiErr.Diagnostics
	}
	return err.Error(), nil
}
