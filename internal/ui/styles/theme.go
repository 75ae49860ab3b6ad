// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeNone  = "none"
)

// Theme holds every style the TUI renders with.
type Theme struct {
	Name         string
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Frame
	App       lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Panel     lipgloss.Style
	StatusBar lipgloss.Style

	// Forms
	Label        lipgloss.Style
	LabelFocused lipgloss.Style
	Tab          lipgloss.Style
	TabActive    lipgloss.Style
	Button       lipgloss.Style
	ButtonActive lipgloss.Style
	ErrorText    lipgloss.Style
	Hint         lipgloss.Style

	// Session
	Countdown        lipgloss.Style
	CountdownWarning lipgloss.Style
	Value            lipgloss.Style
}

// NewTheme detects the terminal and builds the styles. name is one of the
// Theme* constants; unknown names behave like "auto".
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()

	switch name {
	case ThemeDark:
		isDark = true
	case ThemeLight:
		isDark = false
	case ThemeNone:
		profile = termenv.Ascii
	default:
		name = ThemeAuto
	}

	t := &Theme{Name: name, IsDark: isDark, ColorProfile: profile}
	t.Apply()
	t.initStyles()
	return t
}

// Apply pushes the theme's profile and background to lipgloss's default
// renderer.
func (t *Theme) Apply() {
	lipgloss.SetColorProfile(t.ColorProfile)
	lipgloss.SetHasDarkBackground(t.IsDark)
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(1, 2)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(Overlay).
		Padding(0, 1)

	t.Label = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(10)

	t.LabelFocused = t.Label.
		Foreground(Cyan).
		Bold(true)

	t.Tab = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 2)

	t.TabActive = t.Tab.
		Foreground(Purple).
		Bold(true).
		Underline(true)

	t.Button = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(Overlay).
		Padding(0, 2)

	t.ButtonActive = t.Button.
		Foreground(Surface).
		Background(Cyan).
		Bold(true)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Countdown = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.CountdownWarning = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.Value = lipgloss.NewStyle().
		Foreground(TextPrimary)
}

// SetSize records the terminal size.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode is the width class used to pick a layout.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// GetLayoutMode returns the layout class for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}
