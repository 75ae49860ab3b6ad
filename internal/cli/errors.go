// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ErrNotSignedIn is returned by commands that need a saved session.
var ErrNotSignedIn = errors.New("not signed in (run `ifscenter login`)")

// CommandError carries the message shown to the user and the error behind
// it.
type CommandError struct {
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError reports bad arguments.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason + " (see `ifscenter help`)"
}

// DisplayError writes err to stderr, or a JSON envelope to stdout in JSON
// mode.
func DisplayError(command string, err error, jsonMode bool) {
	displayError(os.Stdout, os.Stderr, command, err, jsonMode)
}

func displayError(stdout, stderr io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(stdout)
		return
	}
	fmt.Fprintf(stderr, "%s %s\n", ErrorStyle.Render("[X]"), err.Error())
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, ErrAborted) {
		return ExitSuccess
	}
	return ExitFailure
}
