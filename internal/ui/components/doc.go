// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the widgets the ifscenter TUI is built from.

Each component is a small Bubble Tea model styled with Lip Gloss. The app
model in package app owns them and feeds them session snapshots; none of
them talk to the session manager directly.

# Components

AuthForm (form.go) - sign-in and create-account form with tab navigation.
Ctrl+R switches mode. Enter on the last field emits SubmitMsg.

SessionTimeoutOverlay (session_timeout_overlay.go) - modal shown while the
session is inside its warning window. Enter emits ExtendRequestMsg and L
emits SignOutRequestMsg.

StatusBar (statusbar.go) - one-line footer with the session status, the
signed-in user and the time left.

Spinner (spinner.go) - ASCII spinner shown while a request is in flight.

All indicators are plain ASCII so the UI works with ThemeNone and on
terminals without Unicode fonts.
*/
package components
