// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the client-side authentication session.
//
// A Manager holds the bearer token, derives the token's expiry, schedules
// the pre-expiry warning and the hard expiry, logs out after a period of
// inactivity, and logs out when the backend rejects the token on any
// request. There is one Manager per process; it is built once, started, and
// closed when the UI exits.
//
// # Key Types
//
//   - Manager: aggregate with Login, Register, Logout, Extend, Start, Close
//   - TokenStore: persisted token plus the shared Authorization header
//   - Scheduler: warning, hard-expiry and display-tick timers
//   - Watchdog: idle timer fed by activity signals
//   - Snapshot: read-only view handed to the UI
//
// # Generations
//
// Every token assignment bumps a generation counter. Timer callbacks,
// activity callbacks and response hooks carry the generation they were
// created for; a callback whose generation is no longer current does
// nothing. This is what makes Logout safe to call from several sources at
// once.
//
// # Usage
//
//	mgr, err := session.NewManager(session.ConfigFrom(cfg), session.Deps{
//	    Client:   client,
//	    Storage:  kv,
//	    Activity: bus,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer mgr.Close()
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
package session
