// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/jeranaias/ifscenter-tui/internal/session"
	"github.com/jeranaias/ifscenter-tui/internal/ui/components"
)

// SnapshotMsg delivers a published session snapshot.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// AuthResultMsg is the outcome of a login or register request.
type AuthResultMsg struct {
	Mode     components.FormMode
	Snapshot session.Snapshot
	Err      error
}

// ExtendResultMsg is the outcome of an extension request.
type ExtendResultMsg struct {
	Snapshot session.Snapshot
	Err      error
}

// SignedOutMsg is sent once an explicit sign-out has completed.
type SignedOutMsg struct {
	Snapshot session.Snapshot
}

// StartupFailedMsg reports that the saved session could not be read.
type StartupFailedMsg struct {
	Err error
}
