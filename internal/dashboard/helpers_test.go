package dashboard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/smileynet/roster/internal/cache"
	"github.com/smileynet/roster/internal/controller"
	"github.com/smileynet/roster/internal/listview"
	"github.com/smileynet/roster/internal/session"
	"github.com/smileynet/roster/internal/store"
	"github.com/smileynet/roster/internal/user"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling both single commands and batch
// commands. It returns all resulting messages. Spinner ticks are skipped
// to avoid infinite recursion.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			if c != nil {
				result := c()
				// Skip spinner ticks to avoid recursion.
				if _, isTick := result.(spinner.TickMsg); !isTick {
					msgs = append(msgs, result)
				}
			}
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// fetchedMsg runs cmd and returns the UsersFetchedMsg it produced.
func fetchedMsg(t *testing.T, cmd tea.Cmd) UsersFetchedMsg {
	t.Helper()
	for _, msg := range execBatch(t, cmd) {
		if fm, ok := msg.(UsersFetchedMsg); ok {
			return fm
		}
	}
	t.Fatal("command did not produce a UsersFetchedMsg")
	return UsersFetchedMsg{}
}

// stubFetcher implements controller.Fetcher for tests.
type stubFetcher struct {
	mu    sync.Mutex
	users user.RecordSet
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) (user.RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.users.Clone(), nil
}

func (s *stubFetcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func sampleUsers(n int) user.RecordSet {
	all := user.RecordSet{
		{ID: 1, Name: "Leanne Graham", Email: "Sincere@april.biz", Address: user.Address{City: "Gwenborough"}},
		{ID: 2, Name: "Ervin Howell", Email: "Shanna@melissa.tv", Address: user.Address{City: "Wisokyburgh"}},
		{ID: 3, Name: "Clementine Bauch", Email: "Nathan@yesenia.net", Address: user.Address{City: "McKenziehaven"}},
	}
	return all[:n].Clone()
}

// fixture holds a controller over in-memory stores and a fake clock.
type fixture struct {
	ctl          *controller.Controller
	cache        *cache.TimedCache
	fetcher      *stubFetcher
	sessionStore *store.MemoryStore
}

func newFixture(t *testing.T, remoteUsers user.RecordSet) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	c := cache.New(store.NewMemoryStore(), cache.WithClock(clock))
	ss := store.NewMemoryStore()
	f := &stubFetcher{users: remoteUsers}
	ctl := controller.New(c, listview.New(), session.NewGate(ss), f)
	return &fixture{ctl: ctl, cache: c, fetcher: f, sessionStore: ss}
}

// newSizedModel builds a Model and delivers a window size.
func newSizedModel(t *testing.T, fx *fixture, w, h int) Model {
	t.Helper()
	m := NewModel(context.Background(), fx.ctl)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(Model)
}

// loaded builds a sized Model and completes its startup fetch, if any.
func loaded(t *testing.T, fx *fixture, w, h int) Model {
	t.Helper()
	m := newSizedModel(t, fx, w, h)
	if cmd := m.Init(); cmd != nil {
		updated, _ := m.Update(fetchedMsg(t, cmd))
		m = updated.(Model)
	}
	return m
}

// press sends a rune key to m.
func press(m Model, r rune) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return updated.(Model), cmd
}
