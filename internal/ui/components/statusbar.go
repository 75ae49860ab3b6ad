// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
	"github.com/jeranaias/ifscenter-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// Status is the session status shown at the left of the bar.
type Status int

const (
	StatusSignedOut Status = iota
	StatusValidating
	StatusSignedIn
	StatusExpiring
)

// String returns the display label.
func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "Signed out"
	case StatusValidating:
		return "Checking session..."
	case StatusSignedIn:
		return "Signed in"
	case StatusExpiring:
		return "Expiring"
	default:
		return "Unknown"
	}
}

// Icon returns a shape that does not depend on color.
func (s Status) Icon() string {
	switch s {
	case StatusSignedIn:
		return styles.StatusIndicators.Active
	case StatusExpiring:
		return styles.StatusIndicators.Warning
	case StatusValidating:
		return styles.StatusIndicators.Info
	default:
		return "-"
	}
}

// StatusBar is the one-line footer: status, user, remaining time, key hints.
type StatusBar struct {
	Width     int
	Status    Status
	User      string
	Remaining time.Duration
	Hints     string

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// SetWidth sets the render width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

func (s *StatusBar) statusStyle() lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s.Status {
	case StatusSignedIn:
		return base.Foreground(styles.Emerald)
	case StatusExpiring:
		return base.Foreground(styles.Amber)
	case StatusValidating:
		return base.Foreground(styles.Cyan)
	default:
		return base.Foreground(styles.TextMuted)
	}
}

// View renders the bar. Segments are dropped from the right as the width
// shrinks.
func (s *StatusBar) View() string {
	width := s.Width
	if width <= 0 {
		width = 80
	}

	left := s.statusStyle().Render(s.Status.Icon() + " " + s.Status.String())
	if s.User != "" {
		left += "  " + s.User
	}

	var right []string
	if s.Status == StatusSignedIn || s.Status == StatusExpiring {
		right = append(right, "expires in "+util.FormatRemaining(s.Remaining))
	}
	if s.Hints != "" && width >= 60 {
		right = append(right, s.Hints)
	}
	rightText := strings.Join(right, " | ")

	inner := width - 2
	gap := inner - lipgloss.Width(left) - runewidth.StringWidth(rightText)
	if gap < 1 {
		rightText = util.TruncateWidth(rightText, inner-lipgloss.Width(left)-1)
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + rightText

	style := lipgloss.NewStyle().Padding(0, 1)
	if s.theme != nil {
		style = s.theme.StatusBar
	}
	return style.Width(width).MaxWidth(width).Render(line)
}
