// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/ifscenter-tui/internal/config"
)

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfig implements `ifscenter config [show|path|get KEY|init]`.
func HandleConfig(args Args) error {
	return runConfig(args, os.Stdout)
}

func runConfig(args Args, out io.Writer) error {
	parser := NewArgParser(args.Raw, "force")

	switch sub := parser.Subcommand(); sub {
	case "", "show":
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", json.RawMessage(cfg.String())).Write(out)
		}
		fmt.Fprintln(out, cfg.String())
		return nil

	case "path":
		path, err := configPath(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", map[string]string{"path": path}).Write(out)
		}
		fmt.Fprintln(out, path)
		return nil

	case "get":
		key := parser.Positional(1)
		if key == "" {
			return &UsageError{Reason: "config get needs a key, e.g. session.idle_timeout_secs"}
		}
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if key == "storage.redis_password" || key == "devserver.secret" {
			if s, _ := v.(string); s != "" {
				v = "[REDACTED]"
			}
		}
		if args.JSON {
			return NewJSONResponse("config", map[string]interface{}{key: v}).Write(out)
		}
		fmt.Fprintln(out, v)
		return nil

	case "init":
		path, err := configPath(args)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !parser.BoolFlag("force") {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		if !args.Quiet {
			fmt.Fprintf(out, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
		}
		return nil

	default:
		return &UsageError{Reason: fmt.Sprintf("unknown config subcommand %q", sub)}
	}
}

func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}
