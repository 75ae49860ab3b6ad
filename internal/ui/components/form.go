// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
)

// =============================================================================
// AUTH FORM
// =============================================================================

// FormMode selects between signing in and creating an account.
type FormMode int

const (
	ModeLogin FormMode = iota
	ModeRegister
)

func (m FormMode) String() string {
	if m == ModeRegister {
		return "Create account"
	}
	return "Sign in"
}

// SubmitMsg carries the form values when the user submits.
type SubmitMsg struct {
	Mode     FormMode
	Identity string
	Email    string
	Password string
}

// FormEditedMsg is sent on the first edit after an error so the app can
// clear it.
type FormEditedMsg struct{}

type field struct {
	label string
	input textinput.Model
}

// AuthForm is the sign-in / register form. Tab and arrow keys move between
// fields; ctrl+r toggles the mode; enter on the last field submits.
type AuthForm struct {
	mode   FormMode
	fields []field
	focus  int
	busy   bool
	err    string
	notice string
	width  int
	theme  *styles.Theme
}

// NewAuthForm creates a form in login mode.
func NewAuthForm(theme *styles.Theme) *AuthForm {
	f := &AuthForm{theme: theme, width: 60}
	f.SetMode(ModeLogin)
	return f
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 254
	ti.Width = 36
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(styles.Cyan)
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	return ti
}

// SetMode rebuilds the fields for mode, keeping the identity if typed.
func (f *AuthForm) SetMode(mode FormMode) {
	var identity string
	if len(f.fields) > 0 {
		identity = f.fields[0].input.Value()
	}
	f.mode = mode
	switch mode {
	case ModeRegister:
		f.fields = []field{
			{label: "Name", input: newInput("what should we call you", false)},
			{label: "Email", input: newInput("you@example.com", false)},
			{label: "Password", input: newInput("8+ chars, upper, lower, digit", true)},
		}
	default:
		f.fields = []field{
			{label: "Username", input: newInput("username or email", false)},
			{label: "Password", input: newInput("password", true)},
		}
	}
	f.fields[0].input.SetValue(identity)
	f.focus = 0
	f.fields[0].input.Focus()
}

// Mode returns the current mode.
func (f *AuthForm) Mode() FormMode {
	return f.mode
}

// SetBusy disables input while a request is in flight.
func (f *AuthForm) SetBusy(busy bool) {
	f.busy = busy
}

// Busy reports whether a request is in flight.
func (f *AuthForm) Busy() bool {
	return f.busy
}

// SetError shows msg under the form.
func (f *AuthForm) SetError(msg string) {
	f.err = msg
}

// SetNotice shows a non-error message, e.g. after sign-out.
func (f *AuthForm) SetNotice(msg string) {
	f.notice = msg
}

// SetWidth sets the render width.
func (f *AuthForm) SetWidth(width int) {
	f.width = width
	w := width - 20
	if w < 20 {
		w = 20
	}
	if w > 48 {
		w = 48
	}
	for i := range f.fields {
		f.fields[i].input.Width = w
	}
}

// Reset clears the password fields.
func (f *AuthForm) Reset() {
	for i := range f.fields {
		if f.fields[i].input.EchoMode == textinput.EchoPassword {
			f.fields[i].input.Reset()
		}
	}
}

// Values returns the field values for the current mode.
func (f *AuthForm) Values() SubmitMsg {
	msg := SubmitMsg{Mode: f.mode}
	switch f.mode {
	case ModeRegister:
		msg.Identity = strings.TrimSpace(f.fields[0].input.Value())
		msg.Email = strings.TrimSpace(f.fields[1].input.Value())
		msg.Password = f.fields[2].input.Value()
	default:
		msg.Identity = strings.TrimSpace(f.fields[0].input.Value())
		msg.Password = f.fields[1].input.Value()
	}
	return msg
}

// Focused returns the index of the focused field.
func (f *AuthForm) Focused() int {
	return f.focus
}

func (f *AuthForm) move(delta int) tea.Cmd {
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].input.Focus()
}

// Update handles keys and forwards the rest to the focused input.
func (f *AuthForm) Update(msg tea.Msg) tea.Cmd {
	if f.busy {
		return nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			return f.move(1)
		case "shift+tab", "up":
			return f.move(-1)
		case "ctrl+r":
			if f.mode == ModeLogin {
				f.SetMode(ModeRegister)
			} else {
				f.SetMode(ModeLogin)
			}
			f.err = ""
			return textinput.Blink
		case "enter":
			if f.focus < len(f.fields)-1 {
				return f.move(1)
			}
			values := f.Values()
			if values.Identity == "" || values.Password == "" || (f.mode == ModeRegister && values.Email == "") {
				f.err = "Please fill in every field."
				return nil
			}
			f.notice = ""
			return func() tea.Msg { return values }
		}
	}

	before := f.fields[f.focus].input.Value()
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	if f.err != "" && f.fields[f.focus].input.Value() != before {
		f.err = ""
		return tea.Batch(cmd, func() tea.Msg { return FormEditedMsg{} })
	}
	return cmd
}

// View renders the form.
func (f *AuthForm) View() string {
	t := f.theme
	if t == nil {
		t = styles.NewTheme(styles.ThemeAuto)
	}

	login, register := t.Tab, t.Tab
	if f.mode == ModeLogin {
		login = t.TabActive
	} else {
		register = t.TabActive
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, login.Render(ModeLogin.String()), register.Render(ModeRegister.String()))

	rows := []string{tabs, ""}
	for i, fl := range f.fields {
		label := t.Label
		if i == f.focus {
			label = t.LabelFocused
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label.Render(fl.label), fl.input.View()))
	}
	rows = append(rows, "")

	button := t.Button
	if f.focus == len(f.fields)-1 && !f.busy {
		button = t.ButtonActive
	}
	label := f.mode.String()
	if f.busy {
		label = "Please wait..."
	}
	rows = append(rows, button.Render(label))

	if f.err != "" {
		rows = append(rows, "", t.ErrorText.Render(styles.StatusIndicators.Error+" "+f.err))
	}
	if f.notice != "" {
		rows = append(rows, "", t.Hint.Render(f.notice))
	}
	rows = append(rows, "", t.Hint.Render("tab next field | ctrl+r switch sign in / create account | ctrl+c quit"))

	return t.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
