package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vaultdrive/vaultdrive/internal/client/sync"
)

const txtConfirmHelp = "Press 'y' to proceed, 'n' or 'Esc' to cancel."

// tuiConfirmer shows a terminal yes/no prompt before destructive pushes.
// It satisfies sync.Confirmer.
type tuiConfirmer struct{}

func newTUIConfirmer() sync.Confirmer {
	return &tuiConfirmer{}
}

func (tuiConfirmer) Confirm(ctx context.Context, description string) (bool, error) {
	m := confirmModel{description: description}
	p := tea.NewProgram(m, tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}
	result, ok := final.(confirmModel)
	if !ok {
		return false, nil
	}
	return result.accepted, nil
}

type confirmModel struct {
	description string
	accepted    bool
	done        bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "y", "Y", "enter":
		m.accepted = true
		m.done = true
		return m, tea.Quit
	case "n", "N", "esc", "q", "ctrl+c":
		m.accepted = false
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n%s\n",
		red.Render("The next push will "+m.description+"."),
		cyan.Render("Proceed?"),
		gray.Render(txtConfirmHelp),
	)
}
