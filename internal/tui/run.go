package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/ccollicutt/loglens/pkg/session"
)

// ErrNotTerminal is returned by Run when in or out is not a terminal.
var ErrNotTerminal = errors.New("the explorer needs an interactive terminal")

// Run starts the explorer on in and out and blocks until the user quits or
// ctx ends.
func Run(ctx context.Context, sess *session.Session, title string, debounce time.Duration, in io.Reader, out io.Writer) error {
	if !isTerminal(in) || !isTerminal(out) {
		return ErrNotTerminal
	}

	p := tea.NewProgram(NewModel(sess, title, debounce),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running explorer: %w", err)
	}
	return nil
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
