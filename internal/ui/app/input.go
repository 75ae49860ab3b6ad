// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ifscenter-tui/internal/activity"
)

// Emitter receives interaction signals. *activity.Bus implements it.
type Emitter interface {
	Emit(kind activity.Kind)
}

// activityKind maps terminal input to an interaction kind. ok is false for
// messages that are not user interaction.
func activityKind(msg tea.Msg) (kind activity.Kind, ok bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return activity.KeyDown, true
	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseMotion:
			return activity.PointerMove, true
		case tea.MouseWheelUp, tea.MouseWheelDown:
			return activity.Scroll, true
		case tea.MouseRelease:
			return 0, false
		default:
			return activity.PointerDown, true
		}
	}
	return 0, false
}
