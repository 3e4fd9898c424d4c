// Package dashboard implements the interactive user list: a Bubble Tea model
// over controller.Controller with key bindings, a help bar, a loading spinner,
// and an error banner.
package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/roster/internal/controller"
	"github.com/smileynet/roster/internal/user"
)

// UsersFetchedMsg carries the result of a remote fetch back to Update.
type UsersFetchedMsg struct {
	Users user.RecordSet
	Err   error
}

// fetchUsers returns a tea.Cmd that asks the controller's loader for the
// record set off the update loop and wraps the result in a UsersFetchedMsg.
func fetchUsers(ctx context.Context, ctl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		users, err := ctl.Fetch(ctx)
		return UsersFetchedMsg{Users: users, Err: err}
	}
}
