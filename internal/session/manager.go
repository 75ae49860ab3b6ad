// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ifscenter-tui/internal/activity"
	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/storage"
	"github.com/jeranaias/ifscenter-tui/internal/util"
)

// Client is the backend surface the manager uses. *api.Client implements it.
type Client interface {
	HeaderSetter
	Refresher
	Login(ctx context.Context, identity, secret string) (*api.AuthResponse, error)
	Register(ctx context.Context, r api.RegisterRequest) (*api.AuthResponse, error)
	System(ctx context.Context) (*api.SystemInfo, error)
	Me(ctx context.Context) (*api.User, error)
	Logout(ctx context.Context) error
	Intercept(hook func(api.ResponseMeta)) (remove func())
}

// Deps are the manager's collaborators. Client and Storage are required.
type Deps struct {
	Client   Client
	Storage  storage.KV
	Activity activity.Source
	Clock    clockwork.Clock
	Logger   zerolog.Logger
	Metrics  *Metrics

	// Extender overrides the one selected by Config.ExtendPolicy.
	Extender Extender
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager is the session aggregate. All state changes happen under mu;
// timer, activity and response callbacks enter through generation-checked
// methods. Lock order is mu, then TokenStore, Scheduler or Watchdog.
type Manager struct {
	cfg       Config
	client    Client
	kv        storage.KV
	tokens    *TokenStore
	scheduler *Scheduler
	watchdog  *Watchdog
	extender  Extender
	clock     clockwork.Clock
	logger    zerolog.Logger
	metrics   *Metrics

	mu         sync.Mutex
	state      State
	token      string
	gen        uint64
	expiryAt   time.Time
	warning    bool
	user       *api.User
	authErr    string
	diag       *api.Diagnostics
	lastLogout LogoutReason
	logouts    int
	version    uint64
	started    bool
	closed     bool

	subMu   sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64

	removeHook  func()
	unsubTokens func()
	stopWatch   context.CancelFunc
}

// NewManager wires a manager. It registers the response hook and the token
// subscription immediately; Close releases them.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Client == nil {
		return nil, errors.New("session: client is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("session: storage is required")
	}
	if deps.Activity == nil {
		deps.Activity = activity.NewBus()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	cfg = cfg.withDefaults()

	m := &Manager{
		cfg:     cfg,
		client:  deps.Client,
		kv:      deps.Storage,
		clock:   deps.Clock,
		logger:  deps.Logger.With().Str("component", "session").Logger(),
		metrics: deps.Metrics,
		subs:    make(map[uint64]func(Snapshot)),
	}
	m.tokens = NewTokenStore(deps.Storage, deps.Client)
	m.watchdog = NewWatchdog(deps.Activity, deps.Clock, cfg.IdleTimeout)
	m.scheduler = NewScheduler(deps.Clock, cfg.WarningWindow, cfg.TickInterval, Handlers{
		Warning: m.onWarning,
		Expire:  m.onExpire,
		Tick:    m.onTick,
	})

	switch {
	case deps.Extender != nil:
		m.extender = deps.Extender
	case cfg.ExtendPolicy == PolicyRefresh:
		m.extender = &RefreshExtender{Client: deps.Client, Tokens: m.tokens}
	default:
		m.extender = SimulatedExtender{By: cfg.ExtendBy}
	}

	m.unsubTokens = m.tokens.Subscribe(m.reconcile)
	m.removeHook = deps.Client.Intercept(m.interceptor())
	return m, nil
}

// Tokens exposes the token store.
func (m *Manager) Tokens() *TokenStore {
	return m.tokens
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start loads a persisted token. If one is found the session is Validating
// until one GET /system succeeds; any failure logs out. Start returns an
// error only when storage cannot be read.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	token, err := m.tokens.Load(ctx)
	if err != nil {
		return err
	}
	m.startWatch()

	if token == "" {
		m.logger.Debug().Msg("no persisted token")
		m.publish()
		return nil
	}

	m.mu.Lock()
	tok, gen := m.tokens.Snapshot()
	if tok == "" || gen <= m.gen {
		m.mu.Unlock()
		return nil
	}
	m.token = tok
	m.gen = gen
	m.expiryAt = ExpiryAtWithFallback(tok, m.clock.Now(), m.cfg.FallbackExpiry)
	m.state = Validating
	m.version++
	m.mu.Unlock()
	m.publish()

	m.audit("SESSION_VALIDATING", tok, gen).Msg("validating persisted token")

	if _, err := m.client.System(ctx); err != nil {
		m.logger.Info().Err(err).Msg("persisted token rejected")
		m.logoutIf(gen, true, ReasonValidation)
		return nil
	}

	m.mu.Lock()
	if m.gen != gen || m.state != Validating {
		m.mu.Unlock()
		return nil
	}
	expired := m.activateLocked()
	m.mu.Unlock()

	if expired {
		m.logoutIf(gen, true, ReasonExpired)
	}
	m.publish()
	return nil
}

// startWatch follows token changes by other processes.
func (m *Manager) startWatch() {
	if !m.cfg.WatchExternal {
		return
	}
	watcher, ok := m.kv.(storage.Watcher)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := watcher.Watch(ctx, TokenKey, func(string) { m.onExternalChange(ctx) }); err != nil {
		cancel()
		m.logger.Warn().Err(err).Msg("cannot watch token storage")
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return
	}
	m.stopWatch = cancel
	m.mu.Unlock()
}

func (m *Manager) onExternalChange(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	changed, err := m.tokens.Sync(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("token sync failed")
		return
	}
	if changed {
		m.logger.Info().Msg("token changed by another process")
	}
}

// Close tears down timers, listeners, the response hook and the token
// subscription. The persisted token is kept. Safe to call repeatedly.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.scheduler.Cancel()
	m.watchdog.Stop()
	stopWatch := m.stopWatch
	m.stopWatch = nil
	m.mu.Unlock()

	if stopWatch != nil {
		stopWatch()
	}
	m.removeHook()
	m.unsubTokens()

	m.subMu.Lock()
	m.subs = make(map[uint64]func(Snapshot))
	m.subMu.Unlock()
}

// =============================================================================
// CREDENTIAL EXCHANGES
// =============================================================================

// Login exchanges credentials for a token. On failure the user-facing
// message and diagnostics are recorded and the error is returned.
// Concurrent calls are not deduplicated.
func (m *Manager) Login(ctx context.Context, identity, secret string) (Snapshot, error) {
	if m.isClosed() {
		return Snapshot{}, ErrClosed
	}
	resp, err := m.client.Login(ctx, identity, secret)
	if err != nil {
		m.metrics.login("login", false)
		return m.fail("login", err)
	}
	m.metrics.login("login", true)
	return m.establish(ctx, "login", resp)
}

// Register creates an account and signs in with the returned token.
// identity is the username and display name.
func (m *Manager) Register(ctx context.Context, identity, email, secret string) (Snapshot, error) {
	if m.isClosed() {
		return Snapshot{}, ErrClosed
	}
	resp, err := m.client.Register(ctx, api.RegisterRequest{
		Username:  identity,
		FirstName: identity,
		Email:     email,
		Password:  secret,
	})
	if err != nil {
		m.metrics.login("register", false)
		return m.fail("register", err)
	}
	m.metrics.login("register", true)
	return m.establish(ctx, "register", resp)
}

func (m *Manager) fail(op string, err error) (Snapshot, error) {
	msg, diag := api.UserMessage(err)
	m.mu.Lock()
	m.authErr = msg
	m.diag = diag
	m.version++
	m.mu.Unlock()

	m.logger.Info().Str("op", op).Err(err).Msg("authentication failed")
	m.publish()
	return m.Snapshot(), err
}

// establish stores the token pair. The timers are armed by reconcile once
// the token is durably set.
func (m *Manager) establish(ctx context.Context, op string, resp *api.AuthResponse) (Snapshot, error) {
	m.mu.Lock()
	m.authErr = ""
	m.diag = nil
	m.mu.Unlock()

	if err := m.tokens.SetRefreshToken(ctx, resp.RefreshToken); err != nil {
		return m.fail(op, err)
	}
	if err := m.tokens.Set(ctx, resp.AccessToken); err != nil {
		return m.fail(op, err)
	}

	_, gen := m.tokens.Snapshot()
	m.mu.Lock()
	if m.gen == gen && m.token != "" {
		m.user = resp.User
		m.version++
	}
	m.mu.Unlock()
	m.publish()

	snap := m.Snapshot()
	m.audit("SESSION_CREATED", snap.Token, snap.Generation).
		Str("op", op).
		Time("expires", snap.ExpiryAt).
		Msg("session started")
	return snap, nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout ends the session. Idempotent and safe from any goroutine.
func (m *Manager) Logout() {
	m.logoutIf(0, false, ReasonExplicit)
}

// SignOut is Logout preceded by a best-effort POST /logout when configured.
func (m *Manager) SignOut(ctx context.Context) {
	if m.cfg.NotifyServerOnLogout && m.IsAuthenticated() {
		if err := m.client.Logout(ctx); err != nil {
			m.logger.Debug().Err(err).Msg("server logout failed")
		}
	}
	m.Logout()
}

// logoutIf ends the session if one is held and, when checkGen is set, its
// generation is gen. It reports whether this call performed the
// transition.
func (m *Manager) logoutIf(gen uint64, checkGen bool, reason LogoutReason) bool {
	m.mu.Lock()
	if m.closed || m.token == "" || (checkGen && gen != m.gen) {
		m.mu.Unlock()
		return false
	}
	token, current := m.token, m.gen
	m.endLocked(reason)
	m.mu.Unlock()

	// A newer token set since this generation is left alone.
	if _, err := m.tokens.ClearGeneration(context.Background(), current); err != nil {
		m.logger.Warn().Err(err).Msg("clear persisted token")
	}

	m.audit("SESSION_LOGOUT", token, current).Str("reason", string(reason)).Msg("session ended")
	m.publish()
	return true
}

// endLocked resets to Anonymous and cancels every timer and listener.
func (m *Manager) endLocked(reason LogoutReason) {
	m.scheduler.Cancel()
	m.watchdog.Stop()
	m.state = Anonymous
	m.token = ""
	m.expiryAt = time.Time{}
	m.warning = false
	m.user = nil
	m.lastLogout = reason
	m.logouts++
	m.version++
	m.metrics.logout(reason)
}

// =============================================================================
// EXTENSION
// =============================================================================

// Extend clears the warning and pushes the expiry forward using the
// configured Extender. The default moves the expiry to at least 30 minutes
// from now. On failure the previous schedule is restored and the error is
// returned.
func (m *Manager) Extend(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if m.token == "" || m.state == Validating {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrNotAuthenticated
	}
	m.warning = false
	m.state = Authenticated
	m.version++
	req := ExtendRequest{Generation: m.gen, ExpiryAt: m.expiryAt, Now: m.clock.Now()}
	m.mu.Unlock()
	m.publish()

	res, err := m.extender.Extend(ctx, req)
	if err != nil {
		m.metrics.extended(false)
		m.restore(req.Generation)
		m.logger.Warn().Err(err).Msg("session extension failed")
		return m.Snapshot(), fmt.Errorf("session: extend: %w", err)
	}

	if res.Token != "" {
		return m.extendWithToken(ctx, req, res)
	}

	m.mu.Lock()
	if m.gen != req.Generation || m.token == "" {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrSessionChanged
	}
	m.expiryAt = res.ExpiryAt
	expired := m.armLocked()
	m.version++
	token, gen := m.token, m.gen
	m.mu.Unlock()

	if expired {
		m.logoutIf(gen, true, ReasonExpired)
	}
	m.metrics.extended(true)
	m.audit("SESSION_EXTENDED", token, gen).Time("expires", res.ExpiryAt).Msg("session extended")
	m.publish()
	return m.Snapshot(), nil
}

func (m *Manager) extendWithToken(ctx context.Context, req ExtendRequest, res ExtendResult) (Snapshot, error) {
	if res.RefreshToken != "" {
		if err := m.tokens.SetRefreshToken(ctx, res.RefreshToken); err != nil {
			m.metrics.extended(false)
			m.restore(req.Generation)
			return m.Snapshot(), fmt.Errorf("session: extend: %w", err)
		}
	}
	replaced, err := m.tokens.Replace(ctx, req.Generation, res.Token)
	if err != nil {
		m.metrics.extended(false)
		m.restore(req.Generation)
		return m.Snapshot(), fmt.Errorf("session: extend: %w", err)
	}
	if !replaced {
		return m.Snapshot(), ErrSessionChanged
	}

	m.metrics.extended(true)
	snap := m.Snapshot()
	m.audit("SESSION_REFRESHED", snap.Token, snap.Generation).Time("expires", snap.ExpiryAt).Msg("token refreshed")
	return snap, nil
}

// restore re-arms the current schedule after a failed extension, which
// re-raises the warning if the session is inside the window.
func (m *Manager) restore(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.token == "" {
		m.mu.Unlock()
		return
	}
	expired := m.armLocked()
	m.version++
	m.mu.Unlock()

	if expired {
		m.logoutIf(gen, true, ReasonExpired)
	}
	m.publish()
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// reconcile brings the manager in line with the token store after any
// assignment. The expiry is derived once per generation. A token adopted
// from another process may belong to another account, so it drops the
// cached user and is validated with GET /me before it counts as
// authenticated.
func (m *Manager) reconcile(change TokenChange) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	token, gen := m.tokens.Snapshot()
	if gen <= m.gen {
		m.mu.Unlock()
		return
	}

	previous, prevGen := m.token, m.gen
	m.gen = gen

	if token == "" {
		if previous == "" {
			m.mu.Unlock()
			return
		}
		// Cleared by something other than logoutIf.
		m.endLocked(ReasonExternal)
		m.mu.Unlock()
		m.audit("SESSION_LOGOUT", previous, prevGen).Str("reason", string(ReasonExternal)).Msg("session ended")
		m.publish()
		return
	}

	m.token = token
	m.expiryAt = ExpiryAtWithFallback(token, m.clock.Now(), m.cfg.FallbackExpiry)

	if change.External && change.Generation == gen && token != previous {
		m.user = nil
		m.warning = false
		m.scheduler.Cancel()
		m.watchdog.Stop()
		m.state = Validating
		m.version++
		m.mu.Unlock()
		m.publish()

		m.audit("SESSION_VALIDATING", token, gen).Msg("validating adopted token")
		m.validateAdopted(gen)
		return
	}

	expired := m.activateLocked()
	m.mu.Unlock()

	if expired {
		m.logoutIf(gen, true, ReasonExpired)
	}
	m.publish()
}

// validateAdopted fetches the owner of an adopted token. Failure logs out
// the same way a rejected persisted token does at startup.
func (m *Manager) validateAdopted(gen uint64) {
	user, err := m.client.Me(context.Background())
	if err != nil {
		m.logger.Info().Err(err).Msg("adopted token rejected")
		m.logoutIf(gen, true, ReasonValidation)
		return
	}

	m.mu.Lock()
	if m.closed || m.gen != gen || m.state != Validating {
		m.mu.Unlock()
		return
	}
	m.user = user
	expired := m.activateLocked()
	m.mu.Unlock()

	if expired {
		m.logoutIf(gen, true, ReasonExpired)
	}
	m.publish()
}

// activateLocked starts the watchdog and the scheduler for the current
// generation.
func (m *Manager) activateLocked() (expired bool) {
	gen := m.gen
	m.watchdog.Start(func() { m.logoutIf(gen, true, ReasonIdle) })
	m.metrics.authenticated()
	m.version++
	return m.armLocked()
}

// armLocked (re)schedules the timers for m.expiryAt. A zero-delay warning
// is applied in line.
func (m *Manager) armLocked() (expired bool) {
	warnDue, expired := m.scheduler.Arm(m.gen, m.expiryAt)
	if expired {
		return true
	}
	if warnDue {
		if !m.warning {
			m.metrics.warned()
		}
		m.warning = true
		m.state = WarningShown
	} else {
		m.warning = false
		m.state = Authenticated
	}
	return false
}

// =============================================================================
// TIMER CALLBACKS
// =============================================================================

func (m *Manager) onWarning(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.token == "" || m.warning {
		m.mu.Unlock()
		return
	}
	m.warning = true
	m.state = WarningShown
	m.version++
	token := m.token
	m.mu.Unlock()

	m.metrics.warned()
	m.audit("SESSION_WARNING", token, gen).Dur("window", m.cfg.WarningWindow).Msg("session expiring")
	m.publish()
}

func (m *Manager) onExpire(gen uint64) {
	m.logoutIf(gen, true, ReasonExpired)
}

func (m *Manager) onTick(gen uint64, _ time.Duration) {
	m.mu.Lock()
	current := gen == m.gen && m.token != ""
	m.mu.Unlock()
	if current {
		m.publish()
	}
}

// =============================================================================
// READ-ONLY STATE
// =============================================================================

// Snapshot returns a consistent copy of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         m.state,
		Token:         m.token,
		Generation:    m.gen,
		ExpiryAt:      m.expiryAt,
		WarningActive: m.warning,
		User:          m.user,
		AuthError:     m.authErr,
		Diagnostics:   m.diag,
		LastLogout:    m.lastLogout,
		Version:       m.version,
	}
	if m.token != "" {
		snap.Remaining = clampRemaining(m.expiryAt.Sub(m.clock.Now()))
		snap.LastActivityAt = m.watchdog.LastActivity()
	}
	return snap
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

// Remaining returns the time until expiry, or 0.
func (m *Manager) Remaining() time.Duration {
	return m.Snapshot().Remaining
}

// WarningActive reports whether the expiry warning is showing.
func (m *Manager) WarningActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warning
}

// AuthError returns the last login or register failure message.
func (m *Manager) AuthError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authErr
}

// Diagnostics returns detail for the last failure, if any.
func (m *Manager) Diagnostics() *api.Diagnostics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diag
}

// LogoutCount returns the number of transitions to Anonymous.
func (m *Manager) LogoutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logouts
}

// ClearAuthError drops the recorded failure, e.g. when the form is edited.
func (m *Manager) ClearAuthError() {
	m.mu.Lock()
	changed := m.authErr != "" || m.diag != nil
	m.authErr = ""
	m.diag = nil
	if changed {
		m.version++
	}
	m.mu.Unlock()
	if changed {
		m.publish()
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for every published snapshot. fn runs on the
// goroutine that caused the change, with no manager lock held.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) publish() {
	snap := m.Snapshot()

	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// =============================================================================
// AUDIT
// =============================================================================

// audit starts a session event line. Tokens are logged by fingerprint only.
func (m *Manager) audit(event, token string, gen uint64) *zerolog.Event {
	return m.logger.Info().
		Str("event", event).
		Uint64("gen", gen).
		Str("token", util.Fingerprint(token))
}
