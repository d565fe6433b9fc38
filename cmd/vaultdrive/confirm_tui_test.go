package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestConfirmModelAccept(t *testing.T) {
	for _, key := range []string{"y", "Y", "enter"} {
		m := confirmModel{description: "delete 3 object(s)"}
		updated, cmd := m.Update(keyPress(key))

		result := updated.(confirmModel)
		assert.True(t, result.accepted, "key %q", key)
		assert.True(t, result.done, "key %q", key)
		assert.NotNil(t, cmd, "key %q", key)
	}
}

func TestConfirmModelDecline(t *testing.T) {
	for _, key := range []string{"n", "N", "esc", "q", "ctrl+c"} {
		m := confirmModel{description: "delete 3 object(s)"}
		updated, cmd := m.Update(keyPress(key))

		result := updated.(confirmModel)
		assert.False(t, result.accepted, "key %q", key)
		assert.True(t, result.done, "key %q", key)
		assert.NotNil(t, cmd, "key %q", key)
	}
}

func TestConfirmModelIgnoresOtherKeys(t *testing.T) {
	m := confirmModel{description: "delete 3 object(s)"}
	updated, cmd := m.Update(keyPress("x"))

	result := updated.(confirmModel)
	assert.False(t, result.done)
	assert.Nil(t, cmd)
	assert.Contains(t, result.View(), "delete 3 object(s)")
}

func TestSpinnerModelQuitsOnDone(t *testing.T) {
	m := spinnerModel{label: "pushing changes..."}
	updated, cmd := m.Update(spinnerDoneMsg{err: assert.AnError})

	result := updated.(spinnerModel)
	assert.True(t, result.done)
	assert.ErrorIs(t, result.err, assert.AnError)
	assert.NotNil(t, cmd)
	assert.Empty(t, result.View())
}
