package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the dashboard and blocks until the user quits. nav must be the
// navigator the backend was built with.
func Run(ctx context.Context, deps Deps, nav *Navigator) error {
	p := tea.NewProgram(NewModel(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	nav.Attach(p)
	defer nav.Attach(nil)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard exited: %w", err)
	}
	return nil
}
