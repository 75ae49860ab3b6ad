// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// =============================================================================
// AUTHORIZATION HEADER
// =============================================================================

// SetAuthToken sets (or with "" removes) the default bearer token attached
// to every outbound request, together with the token generation it belongs
// to. Only the session token store calls this.
func (c *Client) SetAuthToken(token string, gen uint64) {
	c.authMu.Lock()
	c.authToken = token
	c.authGen = gen
	c.authMu.Unlock()
}

// AuthToken returns the default bearer token and its generation.
func (c *Client) AuthToken() (string, uint64) {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.authToken, c.authGen
}

// =============================================================================
// RESPONSE HOOKS
// =============================================================================

// ResponseMeta describes a completed request. Hooks receive it after the
// status line is read and before the caller sees the result.
type ResponseMeta struct {
	Method    string
	Path      string
	Status    int
	RequestID string

	// Generation is the token generation attached when the request was sent.
	Generation uint64

	// CredentialExchange marks login, register and refresh requests.
	CredentialExchange bool
}

// Intercept registers hook for every response. The returned function
// removes it; calling it again is a no-op.
func (c *Client) Intercept(hook func(ResponseMeta)) (remove func()) {
	c.hookMu.Lock()
	id := c.nextHook
	c.nextHook++
	c.hooks[id] = hook
	c.hookMu.Unlock()

	return func() {
		c.hookMu.Lock()
		delete(c.hooks, id)
		c.hookMu.Unlock()
	}
}

// Interceptors returns the number of registered hooks.
func (c *Client) Interceptors() int {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	return len(c.hooks)
}

// notify runs hooks on the calling goroutine, outside the hook lock.
func (c *Client) notify(meta ResponseMeta) {
	c.hookMu.Lock()
	hooks := make([]func(ResponseMeta), 0, len(c.hooks))
	for _, h := range c.hooks {
		hooks = append(hooks, h)
	}
	c.hookMu.Unlock()

	for _, h := range hooks {
		h(meta)
	}
}
