// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ifscenter-tui/internal/activity"
	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/session"
	"github.com/jeranaias/ifscenter-tui/internal/ui/components"
	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSession struct {
	mu sync.Mutex

	snap      session.Snapshot
	loginErr  error
	extendErr error
	confirm   bool

	logins, registers, extends, signOuts, clears int
	identity, email                              string
}

func signedIn() session.Snapshot {
	return session.Snapshot{
		State:      session.Authenticated,
		Token:      "tok",
		Generation: 1,
		ExpiryAt:   time.Now().Add(24 * time.Hour),
		Remaining:  24 * time.Hour,
		User:       &api.User{FirstName: "Ada", Email: "ada@example.com"},
	}
}

func (f *fakeSession) next(s session.Snapshot) session.Snapshot {
	s.Version = f.snap.Version + 1
	f.snap = s
	return s
}

func (f *fakeSession) Login(_ context.Context, identity, _ string) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	f.identity = identity
	if f.loginErr != nil {
		s := f.snap
		s.AuthError = "Invalid email or password"
		return f.next(s), f.loginErr
	}
	return f.next(signedIn()), nil
}

func (f *fakeSession) Register(_ context.Context, identity, email, _ string) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	f.identity, f.email = identity, email
	if f.confirm {
		err := &api.AuthError{
			Status:  201,
			Message: "Registration successful! Please check your email to confirm your account.",
			Err:     api.ErrConfirmationRequired,
		}
		s := f.snap
		s.AuthError = err.Message
		return f.next(s), err
	}
	return f.next(signedIn()), nil
}

func (f *fakeSession) Extend(context.Context) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extends++
	s := f.snap
	if f.extendErr != nil {
		return f.next(s), f.extendErr
	}
	s.WarningActive = false
	s.State = session.Authenticated
	s.Remaining = 30 * time.Minute
	return f.next(s), nil
}

func (f *fakeSession) SignOut(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	f.next(session.Snapshot{State: session.Anonymous, LastLogout: session.ReasonExplicit})
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) ClearAuthError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.snap.AuthError = ""
}

type recorder struct {
	kinds []activity.Kind
}

func (r *recorder) Emit(kind activity.Kind) {
	r.kinds = append(r.kinds, kind)
}

// =============================================================================
// HELPERS
// =============================================================================

func newModel(t *testing.T, sess *fakeSession) (Model, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := New(sess, rec, styles.NewTheme(styles.ThemeNone))
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, rec
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd, flattening batches.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func relevant(msg tea.Msg) bool {
	switch msg.(type) {
	case SnapshotMsg, AuthResultMsg, ExtendResultMsg, SignedOutMsg,
		components.SubmitMsg, components.ExtendRequestMsg, components.SignOutRequestMsg:
		return true
	}
	return false
}

// drive feeds msg and every app-level message its commands produce.
func drive(m Model, msg tea.Msg) Model {
	queue := []tea.Msg{msg}
	for i := 0; len(queue) > 0 && i < 20; i++ {
		var cmd tea.Cmd
		m, cmd = update(m, queue[0])
		queue = queue[1:]
		for _, out := range run(cmd) {
			if relevant(out) {
				queue = append(queue, out)
			}
		}
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func anonymous(version uint64) session.Snapshot {
	return session.Snapshot{State: session.Anonymous, Version: version}
}

// =============================================================================
// TESTS
// =============================================================================

func TestActivityKind(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		kind activity.Kind
		ok   bool
	}{
		{"key", keyMsg("a"), activity.KeyDown, true},
		{"motion", tea.MouseMsg{Type: tea.MouseMotion}, activity.PointerMove, true},
		{"wheel up", tea.MouseMsg{Type: tea.MouseWheelUp}, activity.Scroll, true},
		{"wheel down", tea.MouseMsg{Type: tea.MouseWheelDown}, activity.Scroll, true},
		{"click", tea.MouseMsg{Type: tea.MouseLeft}, activity.PointerDown, true},
		{"right click", tea.MouseMsg{Type: tea.MouseRight}, activity.PointerDown, true},
		{"release", tea.MouseMsg{Type: tea.MouseRelease}, 0, false},
		{"resize", tea.WindowSizeMsg{}, 0, false},
		{"snapshot", SnapshotMsg{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := activityKind(tt.msg)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.kind, kind)
			}
		})
	}
}

func TestUpdate_EmitsActivity(t *testing.T) {
	sess := &fakeSession{}
	m, rec := newModel(t, sess)
	m = drive(m, SnapshotMsg{Snapshot: sess.next(signedIn())})

	m, _ = update(m, keyMsg("x"))
	m, _ = update(m, tea.MouseMsg{Type: tea.MouseMotion})
	_, _ = update(m, tea.MouseMsg{Type: tea.MouseWheelDown})

	require.Equal(t, []activity.Kind{activity.KeyDown, activity.PointerMove, activity.Scroll}, rec.kinds)
}

func TestInit_ReadsSnapshot(t *testing.T) {
	sess := &fakeSession{}
	sess.next(signedIn())
	m, _ := newModel(t, sess)

	var snap *SnapshotMsg
	for _, msg := range run(m.Init()) {
		if s, ok := msg.(SnapshotMsg); ok {
			snap = &s
		}
	}
	require.NotNil(t, snap)
	m = drive(m, *snap)
	require.Equal(t, ScreenHome, m.Screen())
}

func TestApply_Screens(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)
	require.Equal(t, ScreenStartup, m.Screen())
	require.Contains(t, m.View(), "Checking your saved session")

	m = drive(m, SnapshotMsg{Snapshot: session.Snapshot{State: session.Validating, Token: "t", Version: 1}})
	require.Equal(t, ScreenStartup, m.Screen())

	m = drive(m, SnapshotMsg{Snapshot: anonymous(2)})
	require.Equal(t, ScreenLogin, m.Screen())
	require.Contains(t, m.View(), "Sign in")

	s := signedIn()
	s.Version = 3
	m = drive(m, SnapshotMsg{Snapshot: s})
	require.Equal(t, ScreenHome, m.Screen())
	view := m.View()
	require.Contains(t, view, "Welcome back, Ada")
	require.Contains(t, view, "ada@example.com")
	require.Contains(t, view, "Signed in")
}

func TestApply_DropsStaleSnapshots(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)

	s := signedIn()
	s.Version = 5
	m = drive(m, SnapshotMsg{Snapshot: s})
	m = drive(m, SnapshotMsg{Snapshot: anonymous(3)})
	require.Equal(t, ScreenHome, m.Screen())
	require.Equal(t, uint64(5), m.Snapshot().Version)

	// Equal versions (countdown ticks) still apply.
	s.Remaining = time.Hour
	m = drive(m, SnapshotMsg{Snapshot: s})
	require.Equal(t, time.Hour, m.Snapshot().Remaining)
}

func TestLoginFlow(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)
	m = drive(m, SnapshotMsg{Snapshot: sess.next(anonymous(0))})

	m = drive(m, components.SubmitMsg{Mode: components.ModeLogin, Identity: "ada", Password: "Secret123"})
	require.Equal(t, 1, sess.logins)
	require.Equal(t, "ada", sess.identity)
	require.Equal(t, ScreenHome, m.Screen())
	require.False(t, m.Form().Busy())
}

func TestLoginFailureShowsMessage(t *testing.T) {
	sess := &fakeSession{loginErr: &api.AuthError{Status: 401, Message: "Invalid email or password"}}
	m, _ := newModel(t, sess)
	m = drive(m, SnapshotMsg{Snapshot: sess.next(anonymous(0))})

	m = drive(m, components.SubmitMsg{Mode: components.ModeLogin, Identity: "ada", Password: "nope"})
	require.Equal(t, ScreenLogin, m.Screen())
	require.False(t, m.Form().Busy())
	require.Contains(t, m.View(), "Invalid email or password")

	run(func() tea.Cmd { _, cmd := update(m, components.FormEditedMsg{}); return cmd }())
	require.Equal(t, 1, sess.clears)
}

func TestRegisterConfirmationRequired(t *testing.T) {
	sess := &fakeSession{confirm: true}
	m, _ := newModel(t, sess)
	m = drive(m, SnapshotMsg{Snapshot: sess.next(anonymous(0))})
	m.Form().SetMode(components.ModeRegister)

	msg := components.SubmitMsg{Mode: components.ModeRegister, Identity: "Ada", Email: "ada@example.com", Password: "Secret123"}
	next, cmd := update(m, msg)
	var result AuthResultMsg
	for _, out := range run(cmd) {
		if r, ok := out.(AuthResultMsg); ok {
			result = r
		}
	}
	require.ErrorIs(t, result.Err, api.ErrConfirmationRequired)

	next, cmd = update(next, result)
	run(cmd)
	require.Equal(t, 1, sess.clears)
	require.Equal(t, components.ModeLogin, next.Form().Mode())
	require.Equal(t, ScreenLogin, next.Screen())
	require.Contains(t, next.View(), "Please check your email")
	require.Equal(t, "ada@example.com", sess.email)
}

func TestWarningOverlay(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)

	s := signedIn()
	s.State = session.WarningShown
	s.WarningActive = true
	s.Remaining = 90 * time.Second
	m = drive(m, SnapshotMsg{Snapshot: sess.next(s)})
	require.True(t, m.OverlayVisible())
	require.Contains(t, m.View(), "1:30")
	require.Contains(t, m.View(), "Expiring")

	// Countdown ticks keep the overlay up and refresh the time.
	s.Remaining = 89 * time.Second
	m = drive(m, SnapshotMsg{Snapshot: sess.next(s)})
	require.Contains(t, m.View(), "1:29")

	// Enter extends; the resulting snapshot clears the warning.
	m = drive(m, keyMsg("enter"))
	require.Equal(t, 1, sess.extends)
	require.False(t, m.OverlayVisible())
	require.Equal(t, ScreenHome, m.Screen())
	require.Contains(t, m.View(), "Session extended.")
}

func TestWarningOverlay_ExtendFailure(t *testing.T) {
	sess := &fakeSession{extendErr: errors.New("network down")}
	m, _ := newModel(t, sess)

	s := signedIn()
	s.WarningActive = true
	s.State = session.WarningShown
	s.Remaining = time.Minute
	m = drive(m, SnapshotMsg{Snapshot: sess.next(s)})

	m = drive(m, keyMsg("enter"))
	require.Equal(t, 1, sess.extends)
	require.True(t, m.OverlayVisible())
	require.Contains(t, m.View(), "Could not extend your session.")
}

func TestOverlaySignOut(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)

	s := signedIn()
	s.WarningActive = true
	s.State = session.WarningShown
	m = drive(m, SnapshotMsg{Snapshot: sess.next(s)})

	m = drive(m, keyMsg("l"))
	require.Equal(t, 1, sess.signOuts)
	require.False(t, m.OverlayVisible())
	require.Equal(t, ScreenLogin, m.Screen())
	require.Contains(t, m.View(), "You have been signed out.")
}

func TestHomeKeys(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)
	m = drive(m, SnapshotMsg{Snapshot: sess.next(signedIn())})

	m = drive(m, keyMsg("e"))
	require.Equal(t, 1, sess.extends)

	m = drive(m, keyMsg("l"))
	require.Equal(t, 1, sess.signOuts)
	require.Equal(t, ScreenLogin, m.Screen())
}

func TestEndedMessages(t *testing.T) {
	reasons := []session.LogoutReason{
		session.ReasonExplicit, session.ReasonIdle, session.ReasonExpired,
		session.ReasonUnauthorized, session.ReasonValidation, session.ReasonExternal,
	}
	seen := map[string]bool{}
	for _, r := range reasons {
		msg := endedMessage(r)
		require.NotEmpty(t, msg, r)
		require.False(t, seen[msg], "duplicate message for %s", r)
		seen[msg] = true
	}
	require.Empty(t, endedMessage(session.ReasonNone))
}

func TestIdleLogoutNotice(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)
	m = drive(m, SnapshotMsg{Snapshot: sess.next(signedIn())})

	m = drive(m, SnapshotMsg{Snapshot: sess.next(session.Snapshot{State: session.Anonymous, LastLogout: session.ReasonIdle})})
	require.Equal(t, ScreenLogin, m.Screen())
	require.Contains(t, m.View(), "period of inactivity")
}

func TestCtrlCQuits(t *testing.T) {
	m, _ := newModel(t, &fakeSession{})
	m, cmd := update(m, keyMsg("ctrl+c"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Empty(t, m.View())
}

type fakeProgram struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (p *fakeProgram) Send(msg tea.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

type fakePublisher struct {
	fn func(session.Snapshot)
}

func (p *fakePublisher) Subscribe(fn func(session.Snapshot)) func() {
	p.fn = fn
	return func() { p.fn = nil }
}

func TestBridge(t *testing.T) {
	pub := &fakePublisher{}
	prog := &fakeProgram{}

	stop := Bridge(pub, prog)
	pub.fn(session.Snapshot{Version: 7})
	require.Equal(t, []tea.Msg{SnapshotMsg{Snapshot: session.Snapshot{Version: 7}}}, prog.msgs)

	stop()
	require.Nil(t, pub.fn)
}

func TestViewFitsNarrowTerminal(t *testing.T) {
	sess := &fakeSession{}
	m, _ := newModel(t, sess)
	m, _ = update(m, tea.WindowSizeMsg{Width: 50, Height: 20})
	m = drive(m, SnapshotMsg{Snapshot: sess.next(signedIn())})
	require.True(t, strings.Contains(m.View(), "IFScenter"))
	require.False(t, strings.Contains(m.View(), "Internal Family Systems journal"))
}

func TestStartupFailed(t *testing.T) {
	m, _ := newModel(t, &fakeSession{})
	require.Equal(t, ScreenStartup, m.Screen())

	m, _ = update(m, StartupFailedMsg{Err: errors.New("disk gone")})
	require.Equal(t, ScreenLogin, m.Screen())
	require.Contains(t, m.View(), "disk gone")
}
