// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model of the ifscenter TUI.
//
// The model renders session snapshots and forwards user intent. Every call
// into the session manager runs inside a tea.Cmd because the manager
// publishes snapshots synchronously and the bridge delivers them with
// Program.Send, which must not be called from Update.
//
// Terminal input doubles as the activity feed for the idle watchdog: key
// presses, clicks, wheel events and pointer motion are emitted on the
// activity bus before they are handled.
package app
