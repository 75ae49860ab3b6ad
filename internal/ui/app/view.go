// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
	"github.com/jeranaias/ifscenter-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	bodyHeight := m.height - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	if m.overlay.IsVisible() {
		body = m.overlay.View()
	} else {
		var content string
		switch m.screen {
		case ScreenStartup:
			content = m.viewStartup()
		case ScreenLogin:
			content = m.viewLogin()
		default:
			content = m.viewHome()
		}
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.status.View())
}

func (m Model) header() string {
	title := m.theme.Title.Render("IFScenter")
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return title
	}
	return lipgloss.JoinVertical(lipgloss.Center, title, m.theme.Subtitle.Render("Internal Family Systems journal"))
}

func (m Model) viewStartup() string {
	return lipgloss.JoinVertical(lipgloss.Center, m.header(), "", m.spinner.View())
}

func (m Model) viewLogin() string {
	parts := []string{m.header(), "", m.form.View()}
	if m.form.Busy() {
		parts = append(parts, "", m.spinner.View())
	}
	return lipgloss.JoinVertical(lipgloss.Center, parts...)
}

func (m Model) viewHome() string {
	t := m.theme
	snap := m.snap

	name := snap.User.DisplayName()
	greeting := "Welcome back"
	if name != "" {
		greeting += ", " + util.TruncateWidth(name, 40)
	}

	countdown := t.Countdown
	if snap.WarningActive {
		countdown = t.CountdownWarning
	}

	rows := []string{t.Title.Render(greeting), ""}
	if snap.User != nil && snap.User.Email != "" {
		rows = append(rows, t.Label.Render("Email")+t.Value.Render(snap.User.Email))
	}
	if !snap.ExpiryAt.IsZero() {
		rows = append(rows,
			t.Label.Render("Expires")+t.Value.Render(snap.ExpiryAt.Local().Format("Mon 15:04")),
			t.Label.Render("Time left")+countdown.Render(util.FormatRemaining(snap.Remaining)),
		)
	}
	if m.flash != "" {
		rows = append(rows, "", t.Hint.Render(m.flash))
	}
	rows = append(rows, "", t.Hint.Render("[e] extend   [l] sign out   [q] quit"))

	return lipgloss.JoinVertical(lipgloss.Center, m.header(), "", t.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
}
