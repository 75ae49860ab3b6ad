// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
	"github.com/jeranaias/ifscenter-tui/internal/util"
)

// =============================================================================
// SESSION TIMEOUT OVERLAY
// =============================================================================

// SessionTimeoutOverlay is the pre-expiry warning. It offers the user the
// choice to stay signed in or sign out. Other keys leave it open.
type SessionTimeoutOverlay struct {
	visible   bool
	remaining time.Duration
	extending bool
	err       string

	width  int
	height int
}

// NewSessionTimeoutOverlay creates a hidden overlay.
func NewSessionTimeoutOverlay() SessionTimeoutOverlay {
	return SessionTimeoutOverlay{}
}

// SetSize sets the area the overlay centers itself in.
func (o *SessionTimeoutOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// Show makes the overlay visible with the given countdown.
func (o *SessionTimeoutOverlay) Show(remaining time.Duration) {
	if !o.visible {
		o.err = ""
	}
	o.visible = true
	o.remaining = remaining
}

// Hide closes the overlay.
func (o *SessionTimeoutOverlay) Hide() {
	o.visible = false
	o.extending = false
	o.err = ""
}

// UpdateTime refreshes the countdown.
func (o *SessionTimeoutOverlay) UpdateTime(remaining time.Duration) {
	o.remaining = remaining
}

// SetExtending marks an extension request in flight.
func (o *SessionTimeoutOverlay) SetExtending(v bool) {
	o.extending = v
}

// SetError shows why the last extension failed.
func (o *SessionTimeoutOverlay) SetError(msg string) {
	o.extending = false
	o.err = msg
}

// IsVisible reports whether the overlay is showing.
func (o *SessionTimeoutOverlay) IsVisible() bool {
	return o.visible
}

// TimeRemaining returns the countdown value last set.
func (o *SessionTimeoutOverlay) TimeRemaining() time.Duration {
	return o.remaining
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// ExtendRequestMsg asks the app to extend the session.
type ExtendRequestMsg struct{}

// SignOutRequestMsg asks the app to end the session.
type SignOutRequestMsg struct{}

// Init implements tea.Model.
func (o SessionTimeoutOverlay) Init() tea.Cmd {
	return nil
}

// Update handles keys while visible.
func (o SessionTimeoutOverlay) Update(msg tea.Msg) (SessionTimeoutOverlay, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.width = msg.Width
		o.height = msg.Height

	case tea.KeyMsg:
		if !o.visible || o.extending {
			return o, nil
		}
		switch msg.String() {
		case "enter", "e", "y":
			o.extending = true
			return o, func() tea.Msg { return ExtendRequestMsg{} }
		case "l", "n":
			return o, func() tea.Msg { return SignOutRequestMsg{} }
		}
	}
	return o, nil
}

// View renders the overlay, or "" when hidden.
func (o SessionTimeoutOverlay) View() string {
	if !o.visible {
		return ""
	}

	width, height := o.width, o.height
	if width == 0 {
		width = 60
	}
	if height == 0 {
		height = 24
	}
	maxWidth := width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}

	titleStyle := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	timeStyle := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 8).
		Align(lipgloss.Center)
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary).Italic(true)

	parts := []string{
		titleStyle.Render(styles.StatusIndicators.Warning + " Session Expiring"),
		"",
		msgStyle.Render("Your session will end in " + timeStyle.Render(util.FormatCountdown(o.remaining))),
		"",
	}
	switch {
	case o.extending:
		parts = append(parts, hintStyle.Render("Extending session..."))
	default:
		parts = append(parts, hintStyle.Render("[enter] stay signed in   [l] sign out"))
	}
	if o.err != "" {
		parts = append(parts, "", lipgloss.NewStyle().Foreground(styles.Rose).Render(o.err))
	}

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 3).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, parts...))

	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}
