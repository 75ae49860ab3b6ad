// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned when the user cancels a prompt with Ctrl+C.
var ErrAborted = errors.New("aborted")

// Prompter reads answers from the user.
type Prompter interface {
	Prompt(label string) (string, error)
	Password(label string) (string, error)
	Close() error
}

// NewPrompter returns a liner-backed prompter on a terminal and a line
// reader over in otherwise.
func NewPrompter(in io.Reader, out io.Writer) Prompter {
	if IsTTY() {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)
		return &linePrompter{state: state}
	}
	return NewReaderPrompter(in, out)
}

// linePrompter uses liner for editing and unechoed password input.
type linePrompter struct {
	state *liner.State
}

func (p *linePrompter) Prompt(label string) (string, error) {
	s, err := p.state.Prompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	return strings.TrimSpace(s), err
}

func (p *linePrompter) Password(label string) (string, error) {
	s, err := p.state.PasswordPrompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	return s, err
}

func (p *linePrompter) Close() error {
	return p.state.Close()
}

// ReaderPrompter reads one line per answer. Used when stdin is piped.
type ReaderPrompter struct {
	r   *bufio.Reader
	out io.Writer
}

// NewReaderPrompter creates a prompter over in. Labels go to out.
func NewReaderPrompter(in io.Reader, out io.Writer) *ReaderPrompter {
	return &ReaderPrompter{r: bufio.NewReader(in), out: out}
}

// Prompt writes label and reads a trimmed line.
func (p *ReaderPrompter) Prompt(label string) (string, error) {
	s, err := p.line(label)
	return strings.TrimSpace(s), err
}

// Password reads a line with only the line ending removed.
func (p *ReaderPrompter) Password(label string) (string, error) {
	return p.line(label)
}

func (p *ReaderPrompter) line(label string) (string, error) {
	if p.out != nil && label != "" {
		fmt.Fprint(p.out, label)
	}
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// Close is a no-op.
func (p *ReaderPrompter) Close() error {
	return nil
}

// promptRequired asks until a non-empty answer is given.
func promptRequired(p Prompter, label string, secret bool) (string, error) {
	for i := 0; i < 3; i++ {
		var (
			s   string
			err error
		)
		if secret {
			s, err = p.Password(label)
		} else {
			s, err = p.Prompt(label)
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
	}
	name := strings.TrimSuffix(label, ": ")
	if name == "" {
		name = "input"
	}
	return "", fmt.Errorf("%s: no value given", name)
}
