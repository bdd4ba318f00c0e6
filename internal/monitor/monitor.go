package monitor

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Run shows the dashboard on the controlling terminal until the user quits
// or ctx is cancelled. A user quit returns nil.
func Run(ctx context.Context, source Source, title string, opts ...tea.ProgramOption) error {
	lipgloss.SetColorProfile(termenv.TrueColor)

	opts = append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
		tea.WithFPS(30),
	}, opts...)

	program := tea.NewProgram(newModel(source, title), opts...)
	_, err := program.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
