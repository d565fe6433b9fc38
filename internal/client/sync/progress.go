package sync

import "context"

// Progress receives human-readable milestones as a push advances. Implemented
// by the control plane status endpoint and by the CLI spinner.
type Progress interface {
	SetMessage(msg string)
}

// Notifier receives failure callouts that should reach the user even when no
// terminal is attached.
type Notifier interface {
	Notify(title, body string)
}

// Confirmer gates destructive phases. Confirm returns false to abort the push
// without error.
type Confirmer interface {
	Confirm(ctx context.Context, description string) (bool, error)
}

type nopProgress struct{}

func (nopProgress) SetMessage(string) {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// AutoConfirmer approves every destructive phase. Used when confirmation is
// disabled in config.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(context.Context, string) (bool, error) { return true, nil }
