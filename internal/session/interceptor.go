// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"net/http"

	"github.com/jeranaias/ifscenter-tui/internal/api"
)

// logoutPath is exempt: a 401 there means the token is already gone.
const logoutPath = "/logout"

// interceptor returns the response hook registered against the shared
// client. A 401 for the current generation logs out; responses to
// credential exchanges and to requests sent under an older token are
// ignored. Concurrent 401s collapse in logoutIf.
func (m *Manager) interceptor() func(api.ResponseMeta) {
	return func(meta api.ResponseMeta) {
		if meta.Status != http.StatusUnauthorized {
			return
		}
		if meta.CredentialExchange || meta.Path == logoutPath {
			return
		}
		if !m.logoutIf(meta.Generation, true, ReasonUnauthorized) {
			m.logger.Debug().
				Str("path", meta.Path).
				Uint64("gen", meta.Generation).
				Msg("ignored 401 for stale or absent session")
		}
	}
}
