// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/session"
	"github.com/jeranaias/ifscenter-tui/internal/util"
)

// =============================================================================
// LOGIN / REGISTER
// =============================================================================

// HandleLogin signs in and persists the token.
//
//	ifscenter login [username] [--password-stdin]
func HandleLogin(ctx context.Context, args Args) error {
	rt, err := NewRuntime(ctx, args, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	var p Prompter
	if NewArgParser(args.Raw, "password-stdin").BoolFlag("password-stdin") {
		p = NewReaderPrompter(os.Stdin, nil)
	} else {
		p = NewPrompter(os.Stdin, os.Stdout)
	}
	defer p.Close()
	return runLogin(ctx, rt, args, p, os.Stdout)
}

func runLogin(ctx context.Context, rt *Runtime, args Args, p Prompter, out io.Writer) error {
	parser := NewArgParser(args.Raw, "password-stdin")

	identity := parser.Positional(0)
	if identity == "" {
		identity = parser.Flag("username")
	}
	fromStdin := parser.BoolFlag("password-stdin")
	if identity == "" && fromStdin {
		return &UsageError{Reason: "--password-stdin needs a username argument"}
	}
	var err error
	if identity == "" {
		if identity, err = promptRequired(p, "Username or email: ", false); err != nil {
			return err
		}
	}
	label := "Password: "
	if fromStdin {
		label = ""
	}
	password, err := promptRequired(p, label, true)
	if err != nil {
		return err
	}

	snap, err := rt.Session.Login(ctx, identity, password)
	if err != nil {
		return authFailure(snap, err)
	}
	printSignedIn(out, args, snap)
	return nil
}

// HandleRegister creates an account and signs in.
func HandleRegister(ctx context.Context, args Args) error {
	rt, err := NewRuntime(ctx, args, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	p := NewPrompter(os.Stdin, os.Stdout)
	defer p.Close()
	return runRegister(ctx, rt, args, p, os.Stdout)
}

func runRegister(ctx context.Context, rt *Runtime, args Args, p Prompter, out io.Writer) error {
	parser := NewArgParser(args.Raw)

	name := parser.Flag("name")
	email := parser.Flag("email")
	var err error
	if name == "" {
		if name, err = promptRequired(p, "Name: ", false); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = promptRequired(p, "Email: ", false); err != nil {
			return err
		}
	}
	password, err := promptRequired(p, "Password: ", true)
	if err != nil {
		return err
	}
	again, err := p.Password("Confirm password: ")
	if err != nil {
		return err
	}
	if again != password {
		return errors.New("passwords do not match")
	}

	snap, err := rt.Session.Register(ctx, name, email, password)
	if errors.Is(err, api.ErrConfirmationRequired) {
		msg, _ := api.UserMessage(err)
		rt.Session.ClearAuthError()
		if !args.Quiet {
			fmt.Fprintln(out, SuccessStyle.Render("[OK]")+" "+msg)
		}
		return nil
	}
	if err != nil {
		return authFailure(snap, err)
	}
	printSignedIn(out, args, snap)
	return nil
}

// authFailure turns a failed credential exchange into the error the user
// sees, with diagnostics appended when present.
func authFailure(snap session.Snapshot, err error) error {
	msg := snap.AuthError
	if msg == "" {
		msg, _ = api.UserMessage(err)
	}
	if d := snap.Diagnostics; d != nil {
		if detail := d.String(); detail != "" {
			msg += "\n  " + strings.ReplaceAll(detail, "\n", "\n  ")
		}
	}
	return &CommandError{Message: msg, Err: err}
}

func printSignedIn(out io.Writer, args Args, snap session.Snapshot) {
	if args.Quiet {
		return
	}
	who := snap.User.DisplayName()
	if who == "" {
		who = "your account"
	}
	fmt.Fprintf(out, "%s Signed in as %s\n", SuccessStyle.Render("[OK]"), who)
	if !snap.ExpiryAt.IsZero() {
		fmt.Fprintln(out, RenderField("Expires", formatExpiry(snap.ExpiryAt, snap.Remaining)))
	}
}

func formatExpiry(at time.Time, remaining time.Duration) string {
	return fmt.Sprintf("%s (in %s)", at.Local().Format("2006-01-02 15:04"), util.FormatRemaining(remaining))
}

// =============================================================================
// LOGOUT
// =============================================================================

// HandleLogout signs out and clears the persisted token.
func HandleLogout(ctx context.Context, args Args) error {
	rt, err := NewRuntime(ctx, args, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return runLogout(ctx, rt, args, os.Stdout)
}

func runLogout(ctx context.Context, rt *Runtime, args Args, out io.Writer) error {
	if err := rt.Session.Start(ctx); err != nil {
		return fmt.Errorf("read saved session: %w", err)
	}
	if !rt.Session.IsAuthenticated() {
		if !args.Quiet {
			fmt.Fprintln(out, DimStyle.Render("Not signed in."))
		}
		return nil
	}
	rt.Session.SignOut(ctx)
	if !args.Quiet {
		fmt.Fprintln(out, SuccessStyle.Render("[OK]")+" Signed out.")
	}
	return nil
}
