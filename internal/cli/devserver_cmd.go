// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/ifscenter-tui/internal/devserver"
	"github.com/jeranaias/ifscenter-tui/internal/logging"
)

// HandleDevServer runs the stand-in backend until interrupted.
//
//	ifscenter devserver [--addr 127.0.0.1:5001] [--refresh] [--confirm] [--ttl MINUTES]
func HandleDevServer(ctx context.Context, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	parser := NewArgParser(args.Raw, "refresh", "confirm")
	dev := cfg.DevServer
	dev.Addr = parser.FlagOrDefault("addr", dev.Addr)
	if parser.BoolFlag("refresh") {
		dev.IssueRefresh = true
	}
	if parser.BoolFlag("confirm") {
		dev.RequireConfirm = true
	}
	if dev.AccessTTLMins, err = parser.FlagInt("ttl", dev.AccessTTLMins); err != nil {
		return &UsageError{Reason: err.Error()}
	}

	out := logging.ToConsole
	if args.Verbose {
		out = logging.ToBoth
	}
	logger, closer, err := logging.Setup(cfg, out)
	if err != nil {
		return err
	}
	defer closer.Close()

	srv, err := devserver.New(dev, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !args.Quiet {
		fmt.Fprintf(os.Stderr, "%s devserver on http://%s/api (ctrl+c to stop)\n", SuccessStyle.Render("[*]"), dev.Addr)
	}
	return srv.ListenAndServe(ctx)
}
