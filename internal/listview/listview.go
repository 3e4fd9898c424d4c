// Package listview holds the rendered user rows and notifies observers when
// rows change. It is the terminal counterpart of a page's list container.
package listview

import (
	"maps"
	"slices"

	"github.com/smileynet/roster/internal/user"
)

// MutationKind identifies what changed in the list.
type MutationKind int

const (
	MutationRemove MutationKind = iota // A single row was removed.
	MutationClear                      // All rows were removed.
)

func (k MutationKind) String() string {
	switch k {
	case MutationRemove:
		return "remove"
	case MutationClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Mutation describes one change to the rendered rows.
type Mutation struct {
	Kind       MutationKind
	ID         int // Removed user ID (MutationRemove only).
	Count      int // Row count after the change.
	Generation int // Render generation the change belongs to.
}

// List is the rendered user list. The zero value is not usable; call New.
//
// Every Render starts a new generation: existing subscriptions are dropped,
// the same way replacing a container detaches observers of the old one, and
// the render hook runs so observers can re-attach.
// List is not safe for concurrent use.
type List struct {
	rows       user.RecordSet
	rendered   bool
	cursor     int
	generation int

	subs    map[int]func(Mutation)
	nextSub int

	onRender func(*List)
}

// New creates an unrendered List.
func New() *List {
	return &List{subs: make(map[int]func(Mutation))}
}

// OnRender registers fn to run after every Render. A later call replaces fn.
func (l *List) OnRender(fn func(*List)) {
	l.onRender = fn
}

// Render replaces all rows with results, in order, and resets the cursor.
func (l *List) Render(results user.RecordSet) {
	l.rows = results.Clone()
	l.rendered = true
	l.cursor = 0
	l.generation++
	clear(l.subs)

	if l.onRender != nil {
		l.onRender(l)
	}
}

// RemoveRow removes the row with id. Returns false if no such row exists.
func (l *List) RemoveRow(id int) bool {
	idx := -1
	for i, u := range l.rows {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	l.rows = append(l.rows[:idx:idx], l.rows[idx+1:]...)
	if l.cursor >= len(l.rows) {
		l.cursor = max(len(l.rows)-1, 0)
	}
	l.notify(Mutation{Kind: MutationRemove, ID: id, Count: len(l.rows), Generation: l.generation})
	return true
}

// Clear removes all rows. The list stays rendered.
func (l *List) Clear() {
	l.rows = nil
	l.cursor = 0
	l.notify(Mutation{Kind: MutationClear, Count: 0, Generation: l.generation})
}

// Subscribe registers fn for mutations of the current generation.
// The returned cancel func is safe to call more than once, including from fn.
func (l *List) Subscribe(fn func(Mutation)) (cancel func()) {
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	gen := l.generation
	return func() {
		if l.generation == gen {
			delete(l.subs, id)
		}
	}
}

// notify delivers m to a snapshot of the subscribers so that a subscriber
// may cancel itself while being notified.
func (l *List) notify(m Mutation) {
	fns := make([]func(Mutation), 0, len(l.subs))
	for _, id := range slices.Sorted(maps.Keys(l.subs)) {
		fns = append(fns, l.subs[id])
	}
	for _, fn := range fns {
		fn(m)
	}
}

// Rendered reports whether Render has been called.
func (l *List) Rendered() bool {
	return l.rendered
}

// Generation returns the number of renders so far.
func (l *List) Generation() int {
	return l.generation
}

// Len returns the row count.
func (l *List) Len() int {
	return len(l.rows)
}

// Rows returns a copy of the rows in display order.
func (l *List) Rows() user.RecordSet {
	return l.rows.Clone()
}

// IDs returns the row IDs in display order.
func (l *List) IDs() []int {
	return l.rows.IDs()
}

// Cursor returns the selected row index.
func (l *List) Cursor() int {
	return l.cursor
}

// Selected returns the user under the cursor.
func (l *List) Selected() (user.User, bool) {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return user.User{}, false
	}
	return l.rows[l.cursor], true
}

// Up moves the cursor up, wrapping to the last row.
func (l *List) Up() {
	if len(l.rows) == 0 {
		return
	}
	l.cursor--
	if l.cursor < 0 {
		l.cursor = len(l.rows) - 1
	}
}

// Down moves the cursor down, wrapping to the first row.
func (l *List) Down() {
	if len(l.rows) == 0 {
		return
	}
	l.cursor++
	if l.cursor >= len(l.rows) {
		l.cursor = 0
	}
}
