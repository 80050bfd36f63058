package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/at-ishikawa/ragfood/internal/config"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the form until the user quits or ctx is done
func Run(ctx context.Context, qa Controller, cfg config.UIConfig, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(NewModel(qa, cfg), opts...)
	subscribe(qa, program.Send)
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("program.Run() > %w", err)
	}
	return nil
}
