// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// User is the account profile returned by the backend.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DisplayName returns the friendliest available name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Message              string `json:"message,omitempty"`
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token,omitempty"`
	AuthMethod           string `json:"auth_method,omitempty"`
	ConfirmationRequired bool   `json:"confirmation_required,omitempty"`
	User                 *User  `json:"user,omitempty"`
}

// RefreshRequest is the body of POST /refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is returned by POST /refresh-token.
type RefreshResponse struct {
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ProfileUpdate is the body of PUT /profile.
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
}

// SystemInfo is the subset of GET /system the client reads.
type SystemInfo struct {
	ID     string                     `json:"id"`
	UserID string                     `json:"user_id"`
	Parts  map[string]json.RawMessage `json:"parts,omitempty"`
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Diagnostics is the structured detail kept alongside a user-facing error
// message, for a "show details" control.
type Diagnostics struct {
	Status    int             `json:"status,omitempty"`
	Path      string          `json:"path,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	Cause     string          `json:"cause,omitempty"`
}

// Fields flattens Details into "key: value" lines when it is a JSON object,
// which is how the backend reports per-field validation failures.
func (d *Diagnostics) Fields() []string {
	if d == nil || len(d.Details) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(d.Details, &obj); err != nil {
		var s string
		if json.Unmarshal(d.Details, &s) == nil && s != "" {
			return []string{s}
		}
		return []string{string(d.Details)}
	}
	out := make([]string, 0, len(obj))
	for k, v := range obj {
		out = append(out, fmt.Sprintf("%s: %s", k, flatten(v)))
	}
	sort.Strings(out)
	return out
}

// String renders the diagnostics on one line per fact.
func (d *Diagnostics) String() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	if d.Status != 0 {
		fmt.Fprintf(&b, "status: %d\n", d.Status)
	}
	if d.Path != "" {
		fmt.Fprintf(&b, "path: %s\n", d.Path)
	}
	if d.RequestID != "" {
		fmt.Fprintf(&b, "request: %s\n", d.RequestID)
	}
	if d.Cause != "" {
		fmt.Fprintf(&b, "cause: %s\n", d.Cause)
	}
	for _, f := range d.Fields() {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, flatten(e))
		}
		return strings.Join(parts, "; ")
	default:
		data, _ := json.Marshal(t)
		return string(data)
	}
}
