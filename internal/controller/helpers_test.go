package controller

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smileynet/roster/internal/cache"
	"github.com/smileynet/roster/internal/listview"
	"github.com/smileynet/roster/internal/session"
	"github.com/smileynet/roster/internal/store"
	"github.com/smileynet/roster/internal/user"
)

var epoch = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// stubFetcher implements Fetcher for tests.
type stubFetcher struct {
	users user.RecordSet
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) (user.RecordSet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.users.Clone(), nil
}

func sampleUsers(n int) user.RecordSet {
	all := user.RecordSet{
		{ID: 1, Name: "Leanne Graham", Email: "Sincere@april.biz", Address: user.Address{City: "Gwenborough"}},
		{ID: 2, Name: "Ervin Howell", Email: "Shanna@melissa.tv", Address: user.Address{City: "Wisokyburgh"}},
		{ID: 3, Name: "Clementine Bauch", Email: "Nathan@yesenia.net", Address: user.Address{City: "McKenziehaven"}},
		{ID: 4, Name: "Patricia Lebsack", Email: "Julianne.OConner@kory.org", Address: user.Address{City: "South Elvis"}},
		{ID: 5, Name: "Chelsey Dietrich", Email: "Lucio_Hettinger@annie.ca", Address: user.Address{City: "Roscoeview"}},
	}
	return all[:n].Clone()
}

// fixture holds a controller over in-memory stores and a fake clock.
type fixture struct {
	ctl     *Controller
	cache   *cache.TimedCache
	list    *listview.List
	gate    *session.Gate
	fetcher *stubFetcher
	clock   *clockwork.FakeClock

	sessionStore *store.MemoryStore
}

func newFixture(t *testing.T, remoteUsers user.RecordSet) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	c := cache.New(store.NewMemoryStore(), cache.WithClock(clock))
	l := listview.New()
	ss := store.NewMemoryStore()
	g := session.NewGate(ss)
	f := &stubFetcher{users: remoteUsers}
	return &fixture{
		ctl:     New(c, l, g, f, WithURL("http://example.test/users")),
		cache:   c,
		list:    l,
		gate:    g,
		fetcher: f,
		clock:   clock,

		sessionStore: ss,
	}
}

// assertConsistent fails unless the list and the cache hold exactly want.
func (fx *fixture) assertConsistent(t *testing.T, want []int) {
	t.Helper()
	if got := fx.list.IDs(); !equalIDs(got, want) {
		t.Errorf("list IDs = %v, want %v", got, want)
	}
	entry, ok := fx.cache.Load()
	if len(want) == 0 {
		if ok {
			t.Errorf("cache entry present with %v, want absent", entry.Results.IDs())
		}
		return
	}
	if !ok {
		t.Fatalf("cache entry absent, want %v", want)
	}
	if got := entry.Results.IDs(); !equalIDs(got, want) {
		t.Errorf("cache IDs = %v, want %v", got, want)
	}
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
