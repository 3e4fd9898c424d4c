package dashboard

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/smileynet/roster/internal/controller"
	"github.com/smileynet/roster/internal/session"
)

func TestNewModel_EmptyCacheStartsLoading(t *testing.T) {
	// Given: no cached entry
	fx := newFixture(t, sampleUsers(3))

	// When: the model is created and sized
	m := newSizedModel(t, fx, 100, 30)

	// Then: it shows the spinner and Init dispatches the fetch
	if !m.loading {
		t.Fatal("model should start loading with an empty cache")
	}
	if !containsPlainText(m.View(), "Loading users...") {
		t.Errorf("View() should show the loading line, got:\n%s", stripANSI(m.View()))
	}
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init() should return the fetch command")
	}

	updated, _ := m.Update(fetchedMsg(t, cmd))
	m = updated.(Model)

	if m.loading {
		t.Error("model should stop loading after UsersFetchedMsg")
	}
	if got := fx.ctl.List().Len(); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
	if _, ok := fx.cache.Load(); !ok {
		t.Error("fetched users should be persisted")
	}
	view := m.View()
	for _, want := range []string{"Leanne Graham", "Sincere@april.biz", "Gwenborough", "remote"} {
		if !containsPlainText(view, want) {
			t.Errorf("View() should contain %q", want)
		}
	}
}

func TestNewModel_FreshCacheRendersImmediately(t *testing.T) {
	// Given: a fresh cached entry
	fx := newFixture(t, sampleUsers(3))
	fx.cache.SaveNow(sampleUsers(2))

	// When: the model is created
	m := newSizedModel(t, fx, 100, 30)

	// Then: rows come from the cache without a fetch
	if m.loading {
		t.Error("model should not load with a fresh cache")
	}
	if m.Init() != nil {
		t.Error("Init() should not fetch with a fresh cache")
	}
	if fx.fetcher.Calls() != 0 {
		t.Errorf("fetch calls = %d, want 0", fx.fetcher.Calls())
	}
	if !containsPlainText(m.View(), "Ervin Howell") {
		t.Error("View() should show cached rows")
	}
	if !containsPlainText(m.View(), "cache") {
		t.Error("title should name the cache as source")
	}
}

func TestModel_FetchErrorShowsBanner(t *testing.T) {
	fx := newFixture(t, nil)
	fx.fetcher.err = errors.New("connection refused")

	m := loaded(t, fx, 100, 30)

	if m.Err() == nil {
		t.Fatal("Err() should hold the fetch error")
	}
	if !containsPlainText(m.View(), "Error: connection refused") {
		t.Errorf("View() should show the error banner, got:\n%s", stripANSI(m.View()))
	}
	if fx.ctl.List().Rendered() {
		t.Error("list should stay unrendered after a failed fetch")
	}
	if _, ok := fx.cache.Load(); ok {
		t.Error("cache should stay empty after a failed fetch")
	}
}

func TestModel_CursorMoves(t *testing.T) {
	fx := newFixture(t, sampleUsers(3))
	m := loaded(t, fx, 100, 30)

	m, _ = press(m, 'j')
	if u, _ := fx.ctl.List().Selected(); u.ID != 2 {
		t.Errorf("after down: selected = %d, want 2", u.ID)
	}
	m, _ = press(m, 'k')
	m, _ = press(m, 'k')
	if u, _ := fx.ctl.List().Selected(); u.ID != 3 {
		t.Errorf("after wrapping up: selected = %d, want 3", u.ID)
	}
}

func TestModel_DeleteRemovesSelectedRow(t *testing.T) {
	// Given: three users on screen with the second selected
	fx := newFixture(t, sampleUsers(3))
	m := loaded(t, fx, 100, 30)
	m, _ = press(m, 'j')

	// When: d is pressed
	m, cmd := press(m, 'd')

	// Then: the row is gone from the list and the cache
	if cmd != nil {
		t.Error("delete should not return a command")
	}
	if got := fx.ctl.List().IDs(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("list ids = %v, want [1 3]", got)
	}
	entry, ok := fx.cache.Load()
	if !ok || len(entry.Results) != 2 {
		t.Fatalf("cache = %+v (ok=%v), want 2 results", entry, ok)
	}
	if containsPlainText(m.View(), "Shanna@melissa.tv") {
		t.Error("deleted row should not render")
	}
	if !containsPlainText(m.View(), "deleted Ervin Howell") {
		t.Error("View() should confirm the delete")
	}
}

func TestModel_DeleteLastRowOffersRefetch(t *testing.T) {
	// Given: a single user on screen
	fx := newFixture(t, sampleUsers(1))
	m := loaded(t, fx, 100, 30)

	// When: the last row is deleted
	m, _ = press(m, 'd')

	// Then: the cache is cleared and the affordance appears
	if _, ok := fx.cache.Load(); ok {
		t.Error("cache should be cleared when the last row goes")
	}
	if !fx.ctl.Affordance() {
		t.Fatal("affordance should be offered")
	}
	if !containsPlainText(m.View(), "Fetch users again") {
		t.Errorf("View() should show the refetch button, got:\n%s", stripANSI(m.View()))
	}
	if !containsPlainText(m.View(), "fetch again") {
		t.Error("help bar should offer the refetch key")
	}

	// When: the affordance is activated
	m, cmd := press(m, 'f')
	if cmd == nil || !m.loading {
		t.Fatal("refetch should start loading")
	}
	updated, _ := m.Update(fetchedMsg(t, cmd))
	m = updated.(Model)

	// Then: rows are back, the affordance is gone, and the session is spent
	if got := fx.ctl.List().Len(); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
	if fx.ctl.Affordance() {
		t.Error("affordance should be withdrawn after refetch")
	}
	if containsPlainText(m.View(), "Fetch users again") {
		t.Error("button should not render after refetch")
	}

	// When: the list is emptied again in the same session
	m, _ = press(m, 'd')

	// Then: no second affordance
	if fx.ctl.Affordance() {
		t.Error("affordance should not be offered twice per session")
	}
	if containsPlainText(m.View(), "Fetch users again") {
		t.Error("button should not render a second time")
	}
	if fx.fetcher.Calls() != 2 {
		t.Errorf("fetch calls = %d, want 2", fx.fetcher.Calls())
	}
}

func TestModel_RefetchUsedElsewhereShowsNotice(t *testing.T) {
	// Given: the affordance is offered
	fx := newFixture(t, sampleUsers(1))
	m := loaded(t, fx, 100, 30)
	m, _ = press(m, 'd')
	if !fx.ctl.Affordance() {
		t.Fatal("affordance should be offered")
	}

	// And: another run in the same session spends the refetch
	if err := session.NewGate(fx.sessionStore).MarkUsed(); err != nil {
		t.Fatal(err)
	}

	// When: the affordance is activated
	m, cmd := press(m, 'f')

	// Then: no fetch, a notice, and the button is withdrawn
	if cmd != nil {
		t.Error("refetch should not dispatch a fetch")
	}
	if !containsPlainText(m.View(), RefetchUsedNotice) {
		t.Errorf("View() should show %q", RefetchUsedNotice)
	}
	if fx.ctl.Affordance() {
		t.Error("affordance should be withdrawn")
	}
	if fx.ctl.EmptyPhase() != controller.EmptyNoAffordance {
		t.Errorf("phase = %v, want %v", fx.ctl.EmptyPhase(), controller.EmptyNoAffordance)
	}
}

func TestModel_RefetchKeyIgnoredWithoutAffordance(t *testing.T) {
	fx := newFixture(t, sampleUsers(2))
	m := loaded(t, fx, 100, 30)

	_, cmd := press(m, 'f')
	if cmd != nil {
		t.Error("f should do nothing while rows exist")
	}
	if fx.fetcher.Calls() != 1 {
		t.Errorf("fetch calls = %d, want 1", fx.fetcher.Calls())
	}
}

func TestModel_KeysIgnoredWhileLoading(t *testing.T) {
	fx := newFixture(t, sampleUsers(2))
	m := newSizedModel(t, fx, 100, 30)

	m, cmd := press(m, 'd')
	if cmd != nil {
		t.Error("d should do nothing while loading")
	}
	if !m.loading {
		t.Error("model should still be loading")
	}
}

func TestModel_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"q", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, sampleUsers(1))
			m := newSizedModel(t, fx, 90, 40)

			_, cmd := m.Update(tt.msg)
			if cmd == nil {
				t.Fatal("quit key should return a command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("quit key should produce tea.QuitMsg")
			}
		})
	}
}

func TestModel_WindowSizeMsg(t *testing.T) {
	fx := newFixture(t, sampleUsers(1))
	m := NewModel(t.Context(), fx.ctl)

	if m.View() != "Initializing..." {
		t.Errorf("unsized View() = %q, want %q", m.View(), "Initializing...")
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	m = updated.(Model)

	if m.width != 120 || m.height != 50 {
		t.Errorf("size = %dx%d, want 120x50", m.width, m.height)
	}
	if m.viewport.Height != 50-headerHeight-footerHeight {
		t.Errorf("viewport height = %d, want %d", m.viewport.Height, 50-headerHeight-footerHeight)
	}
}

func TestModel_NarrowWidthUsesCards(t *testing.T) {
	fx := newFixture(t, sampleUsers(2))
	m := loaded(t, fx, 50, 40)

	view := stripANSI(m.View())
	if !containsPlainText(view, "E-mail") || !containsPlainText(view, "Sincere@april.biz") {
		t.Errorf("card view should label fields, got:\n%s", view)
	}
}

func TestModel_ScrollKeepsCursorVisible(t *testing.T) {
	fx := newFixture(t, sampleUsers(3))
	// Cards take several lines each, so a short window must scroll.
	m := loaded(t, fx, 50, 10)

	m, _ = press(m, 'j')
	m, _ = press(m, 'j')

	if !containsPlainText(m.viewport.View(), "Clementine Bauch") {
		t.Errorf("selected row should be scrolled into view, got:\n%s", stripANSI(m.viewport.View()))
	}
}

func TestHelpBindings(t *testing.T) {
	tests := []struct {
		name        string
		rows        int
		affordance  bool
		wantDelete  bool
		wantRefetch bool
	}{
		{"populated", 3, false, true, false},
		{"empty with affordance", 0, true, false, true},
		{"empty without affordance", 0, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km := HelpBindings(tt.rows, tt.affordance).(keyMap)
			if km.Delete.Enabled() != tt.wantDelete {
				t.Errorf("delete enabled = %v, want %v", km.Delete.Enabled(), tt.wantDelete)
			}
			if km.Refetch.Enabled() != tt.wantRefetch {
				t.Errorf("refetch enabled = %v, want %v", km.Refetch.Enabled(), tt.wantRefetch)
			}
		})
	}
}

func TestErrorBanner(t *testing.T) {
	if ErrorBanner(nil) != "" {
		t.Error("ErrorBanner(nil) should be empty")
	}
	if !containsPlainText(ErrorBanner(errors.New("boom")), "Error: boom") {
		t.Error("ErrorBanner should prefix the message")
	}
}

// TestModel_Teatest_DeleteAllThenRefetch drives the full flow through a
// running program: fetch, delete every row, refetch once, quit.
func TestModel_Teatest_DeleteAllThenRefetch(t *testing.T) {
	fx := newFixture(t, sampleUsers(2))
	m := NewModel(t.Context(), fx.ctl)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Leanne Graham"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Fetch users again"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Ervin Howell"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.loading {
		t.Error("final model should not be loading")
	}
	if got := final.ctl.List().Len(); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
	if fx.fetcher.Calls() != 2 {
		t.Errorf("fetch calls = %d, want 2", fx.fetcher.Calls())
	}
	if !final.ctl.Inspect().RefetchUsed {
		t.Error("session refetch should be spent")
	}
}
