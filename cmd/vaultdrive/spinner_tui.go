package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// runWithSpinner runs fn while a terminal spinner shows label. Without a tty
// it just runs fn.
func runWithSpinner(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return fn(ctx)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cyan

	m := spinnerModel{spinner: s, label: label}
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		p.Send(spinnerDoneMsg{err: fn(ctx)})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if result, ok := final.(spinnerModel); ok {
		return result.err
	}
	return nil
}

type spinnerDoneMsg struct{ err error }

type spinnerModel struct {
	spinner spinner.Model
	label   string
	err     error
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}
