// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
)

func typeInto(f *AuthForm, s string) {
	for _, r := range s {
		f.Update(key(string(r)))
	}
}

func newForm() *AuthForm {
	return NewAuthForm(styles.NewTheme(styles.ThemeNone))
}

func TestAuthForm_LoginSubmit(t *testing.T) {
	f := newForm()
	if f.Mode() != ModeLogin {
		t.Fatalf("default mode = %v", f.Mode())
	}

	typeInto(f, "ada")
	f.Update(key("enter"))
	if f.Focused() != 1 {
		t.Fatalf("enter on first field should advance, focus = %d", f.Focused())
	}
	typeInto(f, "Secret123")

	cmd := f.Update(key("enter"))
	if cmd == nil {
		t.Fatal("enter on last field should submit")
	}
	msg, ok := cmd().(SubmitMsg)
	if !ok {
		t.Fatalf("expected SubmitMsg, got %T", cmd())
	}
	if msg.Mode != ModeLogin || msg.Identity != "ada" || msg.Password != "Secret123" {
		t.Errorf("unexpected submit: %+v", msg)
	}
}

func TestAuthForm_RequiresEveryField(t *testing.T) {
	f := newForm()
	f.Update(key("tab"))
	if cmd := f.Update(key("enter")); cmd != nil {
		t.Fatal("empty form should not submit")
	}
	if !strings.Contains(f.View(), "Please fill in every field.") {
		t.Error("missing fields should be reported")
	}
}

func TestAuthForm_RegisterMode(t *testing.T) {
	f := newForm()
	typeInto(f, "Ada")
	f.Update(key("ctrl+r"))
	if f.Mode() != ModeRegister {
		t.Fatalf("ctrl+r should switch to register, got %v", f.Mode())
	}

	f.Update(key("tab"))
	typeInto(f, "ada@example.com")
	f.Update(key("tab"))
	typeInto(f, "Secret123")

	cmd := f.Update(key("enter"))
	if cmd == nil {
		t.Fatal("register should submit")
	}
	msg := cmd().(SubmitMsg)
	if msg.Identity != "Ada" {
		t.Errorf("identity should survive the mode switch, got %q", msg.Identity)
	}
	if msg.Email != "ada@example.com" || msg.Password != "Secret123" || msg.Mode != ModeRegister {
		t.Errorf("unexpected submit: %+v", msg)
	}

	f.Update(key("ctrl+r"))
	if f.Mode() != ModeLogin {
		t.Error("ctrl+r should toggle back")
	}
}

func TestAuthForm_FocusWraps(t *testing.T) {
	f := newForm()
	f.Update(key("shift+tab"))
	if f.Focused() != 1 {
		t.Errorf("shift+tab from first field should wrap, focus = %d", f.Focused())
	}
	f.Update(key("tab"))
	if f.Focused() != 0 {
		t.Errorf("tab from last field should wrap, focus = %d", f.Focused())
	}
}

func TestAuthForm_BusyIgnoresInput(t *testing.T) {
	f := newForm()
	f.SetBusy(true)
	typeInto(f, "ada")
	if f.Values().Identity != "" {
		t.Error("busy form should not accept input")
	}
	if !strings.Contains(f.View(), "Please wait") {
		t.Error("busy form should say so")
	}
}

func TestAuthForm_EditClearsError(t *testing.T) {
	f := newForm()
	f.SetError("Invalid email or password")
	if !strings.Contains(f.View(), "Invalid email or password") {
		t.Fatal("error should render")
	}
	if cmd := f.Update(key("a")); cmd == nil {
		t.Error("first edit after an error should notify the app")
	}
	if strings.Contains(f.View(), "Invalid email or password") {
		t.Error("error should clear on edit")
	}
}

func TestAuthForm_PasswordMasked(t *testing.T) {
	f := newForm()
	f.Update(key("tab"))
	typeInto(f, "Secret123")
	if strings.Contains(f.View(), "Secret123") {
		t.Error("password should not be echoed")
	}

	f.Reset()
	if f.Values().Password != "" {
		t.Error("Reset should clear the password")
	}
}
