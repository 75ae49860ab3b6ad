// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ifscenter-tui/internal/session"
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Publisher is the part of *session.Manager the bridge needs.
type Publisher interface {
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Bridge forwards every snapshot pub publishes to the program as a
// SnapshotMsg. Snapshots may arrive out of order; the model drops any with
// a lower Version than the last one applied.
func Bridge(pub Publisher, p Sender) (stop func()) {
	return pub.Subscribe(func(snap session.Snapshot) {
		p.Send(SnapshotMsg{Snapshot: snap})
	})
}
