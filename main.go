// ifscenter - terminal client for the IFScenter journaling service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"

	"github.com/jeranaias/ifscenter-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()
	ctx := context.Background()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = cli.RunTUI(ctx, args)
	case cli.CmdLogin:
		err = cli.HandleLogin(ctx, args)
	case cli.CmdRegister:
		err = cli.HandleRegister(ctx, args)
	case cli.CmdLogout:
		err = cli.HandleLogout(ctx, args)
	case cli.CmdStatus:
		err = cli.HandleStatus(ctx, args)
	case cli.CmdWhoami:
		err = cli.HandleWhoami(ctx, args)
	case cli.CmdProfile:
		err = cli.HandleProfile(ctx, args)
	case cli.CmdDevServer:
		err = cli.HandleDevServer(ctx, args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		err = cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		err = &cli.UsageError{Reason: "unknown command \"" + args.Name + "\""}
	}

	if err != nil {
		cli.DisplayError(cmd.String(), err, args.JSON)
		os.Exit(cli.ExitCode(err))
	}
}
