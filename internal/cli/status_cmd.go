// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/util"
)

// =============================================================================
// STATUS
// =============================================================================

// StatusData is the --json shape of `ifscenter status`.
type StatusData struct {
	SignedIn         bool       `json:"signed_in"`
	State            string     `json:"state"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSecs    int64      `json:"remaining_secs"`
	TokenFingerprint string     `json:"token_fingerprint,omitempty"`
	LastLogout       string     `json:"last_logout,omitempty"`
	Server           string     `json:"server"`
	Storage          string     `json:"storage"`
	ExtendPolicy     string     `json:"extend_policy"`
	IdleTimeoutSecs  int        `json:"idle_timeout_secs"`
}

// HandleStatus validates the saved token and reports the session.
func HandleStatus(ctx context.Context, args Args) error {
	rt, err := NewRuntime(ctx, args, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return runStatus(ctx, rt, args, os.Stdout)
}

func collectStatus(ctx context.Context, rt *Runtime) (StatusData, error) {
	if err := rt.Session.Start(ctx); err != nil {
		return StatusData{}, fmt.Errorf("read saved session: %w", err)
	}
	snap := rt.Session.Snapshot()
	data := StatusData{
		SignedIn:        snap.IsAuthenticated(),
		State:           snap.State.String(),
		LastLogout:      string(snap.LastLogout),
		Server:          rt.Client.BaseURL(),
		Storage:         rt.Config.Storage.Backend,
		ExtendPolicy:    rt.Config.Session.ExtendPolicy,
		IdleTimeoutSecs: rt.Config.Session.IdleTimeoutSecs,
	}
	if data.SignedIn {
		at := snap.ExpiryAt.UTC()
		data.ExpiresAt = &at
		data.RemainingSecs = int64(snap.Remaining / time.Second)
		data.TokenFingerprint = util.Fingerprint(snap.Token)
	}
	return data, nil
}

func runStatus(ctx context.Context, rt *Runtime, args Args, out io.Writer) error {
	data, err := collectStatus(ctx, rt)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("status", data).Write(out)
	}

	fmt.Fprintln(out, TitleStyle.Render("IFScenter session"))
	if data.SignedIn {
		fmt.Fprintln(out, RenderField("Status", SuccessStyle.Render("signed in")))
		fmt.Fprintln(out, RenderField("Expires", formatExpiry(*data.ExpiresAt, time.Duration(data.RemainingSecs)*time.Second)))
		fmt.Fprintln(out, RenderField("Token", data.TokenFingerprint))
	} else {
		status := "signed out"
		if data.LastLogout != "" {
			status += " (" + data.LastLogout + ")"
		}
		fmt.Fprintln(out, RenderField("Status", WarningStyle.Render(status)))
	}
	fmt.Fprintln(out, RenderField("Server", data.Server))
	fmt.Fprintln(out, RenderField("Storage", data.Storage))
	fmt.Fprintln(out, RenderField("Idle limit", util.FormatRemaining(time.Duration(data.IdleTimeoutSecs)*time.Second)))
	return nil
}

// =============================================================================
// WHOAMI / PROFILE
// =============================================================================

// HandleWhoami prints the signed-in user from GET /me.
func HandleWhoami(ctx context.Context, args Args) error {
	rt, err := NewRuntime(ctx, args, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return runWhoami(ctx, rt, args, os.Stdout)
}

// requireSession starts the manager and fails unless a valid token is held.
func requireSession(ctx context.Context, rt *Runtime) error {
	if err := rt.Session.Start(ctx); err != nil {
		return fmt.Errorf("read saved session: %w", err)
	}
	if !rt.Session.IsAuthenticated() {
		return ErrNotSignedIn
	}
	return nil
}

func runWhoami(ctx context.Context, rt *Runtime, args Args, out io.Writer) error {
	if err := requireSession(ctx, rt); err != nil {
		return err
	}
	user, err := rt.Client.Me(ctx)
	if err != nil {
		msg, _ := api.UserMessage(err)
		return &CommandError{Message: msg, Err: err}
	}
	if args.JSON {
		return NewJSONResponse("whoami", user).Write(out)
	}
	printUser(out, user)
	return nil
}

func printUser(out io.Writer, user *api.User) {
	fmt.Fprintln(out, TitleStyle.Render(user.DisplayName()))
	fmt.Fprintln(out, RenderField("Username", user.Username))
	fmt.Fprintln(out, RenderField("Email", user.Email))
	if user.CreatedAt != "" {
		fmt.Fprintln(out, RenderField("Member since", user.CreatedAt))
	}
}

// HandleProfile updates the display name.
//
//	ifscenter profile --name "Ada"
func HandleProfile(ctx context.Context, args Args) error {
	rt, err := NewRuntime(ctx, args, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return runProfile(ctx, rt, args, os.Stdout)
}

func runProfile(ctx context.Context, rt *Runtime, args Args, out io.Writer) error {
	parser := NewArgParser(args.Raw)
	name := strings.TrimSpace(parser.Flag("name"))
	if name == "" {
		return &UsageError{Reason: "profile needs --name"}
	}
	if err := requireSession(ctx, rt); err != nil {
		return err
	}
	user, err := rt.Client.UpdateProfile(ctx, name)
	if err != nil {
		msg, diag := api.UserMessage(err)
		if fields := diag.Fields(); len(fields) > 0 {
			msg += ": " + strings.Join(fields, "; ")
		}
		return &CommandError{Message: msg, Err: err}
	}
	if args.JSON {
		return NewJSONResponse("profile", user).Write(out)
	}
	fmt.Fprintf(out, "%s Display name set to %s\n", SuccessStyle.Render("[OK]"), user.DisplayName())
	return nil
}
