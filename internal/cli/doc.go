// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the one-shot commands of
// ifscenter.
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdLogin:
//	    err = cli.HandleLogin(ctx, args)
//	case cli.CmdStatus:
//	    err = cli.HandleStatus(ctx, args)
//	// ...
//	}
//
// Every command that talks to the backend builds a Runtime (config, logger,
// token storage, API client, activity bus and session manager) and closes it
// before returning. The persisted token is shared with the TUI, so signing in
// from the CLI signs in a running TUI too when the storage backend can be
// watched.
//
// Commands exit 0 on success and 1 on any error.
package cli
