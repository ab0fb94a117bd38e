package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/desertthunder/dodeck/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive deck browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/dodeck-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.config.LogLevel)
	r.SetLogger(fileLogger)

	p, err := r.provider(ctx)
	if err != nil {
		return err
	}
	client, err := r.deckClient(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Session: p,
		Client:  client,
		Logger:  fileLogger,
		OpenURL: r.openURL,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
