// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ifscenter-tui/internal/logging"
	"github.com/jeranaias/ifscenter-tui/internal/ui/app"
	"github.com/jeranaias/ifscenter-tui/internal/ui/styles"
)

// =============================================================================
// TUI
// =============================================================================

// RunTUI starts the interactive client. Logs go to the rotating file because
// the program owns the terminal.
func RunTUI(ctx context.Context, args Args) error {
	if err := RequiresTTY("run the client"); err != nil {
		return err
	}

	rt, err := NewRuntime(ctx, args, RuntimeOptions{Output: logging.ToFile})
	if err != nil {
		return err
	}
	defer rt.Close()

	theme := styles.NewTheme(rt.Config.UI.Theme)
	theme.Apply()

	model := app.New(rt.Session, rt.Bus, theme, app.WithRequestTimeout(rt.Config.API.Timeout()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if rt.Config.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if rt.Config.UI.Mouse {
		opts = append(opts, tea.WithMouseAllMotion())
	}
	p := tea.NewProgram(model, opts...)

	stop := app.Bridge(rt.Session, p)
	defer stop()

	log := logging.Component(rt.Logger, "tui")
	started := make(chan struct{})
	go func() {
		defer close(started)
		if err := rt.Session.Start(ctx); err != nil {
			log.Error().Err(err).Msg("SESSION_START_FAILED")
			p.Send(app.StartupFailedMsg{Err: err})
		}
	}()

	_, runErr := p.Run()
	cancel()
	<-started

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", runErr)
	}
	return nil
}
