package dashboard

import "github.com/charmbracelet/bubbles/help"

// HelpBindings returns the help.KeyMap for the current list state.
// Delete is offered only while rows exist; refetch only while the
// affordance is shown.
func HelpBindings(rows int, affordance bool) help.KeyMap {
	km := KeyMap()
	km.Up.SetEnabled(rows > 1)
	km.Down.SetEnabled(rows > 1)
	km.Delete.SetEnabled(rows > 0)
	km.Refetch.SetEnabled(affordance)
	return km
}
