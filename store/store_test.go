package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-dev/navrouter/loc"
	"github.com/wayfarer-dev/navrouter/state"
	"github.com/wayfarer-dev/navrouter/store"
)

func newStore() *store.Store {
	return store.New(state.Snapshot{Location: loc.Location{Pathname: "/"}}, nil, "")
}

func TestGetReturnsInitialSnapshot(t *testing.T) {
	s := newStore()
	require.Equal(t, "/", s.Get().Location.Pathname)
}

func TestCommitInstallsNewSnapshot(t *testing.T) {
	s := newStore()
	s.Commit(state.Snapshot{Location: loc.Location{Pathname: "/foo"}})
	assert.Equal(t, "/foo", s.Get().Location.Pathname)
}

func TestSubscribeIsNotifiedSynchronouslyAfterCommit(t *testing.T) {
	s := newStore()
	var seen state.Snapshot
	calls := 0
	s.Subscribe(func(snap state.Snapshot) {
		calls++
		seen = snap
	})

	s.Commit(state.Snapshot{Location: loc.Location{Pathname: "/bar"}})

	require.Equal(t, 1, calls)
	assert.Equal(t, "/bar", seen.Location.Pathname)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	s := newStore()
	calls := 0
	unsub := s.Subscribe(func(state.Snapshot) { calls++ })
	unsub()

	s.Commit(state.Snapshot{Location: loc.Location{Pathname: "/baz"}})

	assert.Equal(t, 0, calls)
}

func TestMultipleListenersNotifiedInSubscriptionOrder(t *testing.T) {
	s := newStore()
	var order []int
	s.Subscribe(func(state.Snapshot) { order = append(order, 1) })
	s.Subscribe(func(state.Snapshot) { order = append(order, 2) })

	s.Commit(state.Snapshot{})

	require.Equal(t, []int{1, 2}, order)
}

func TestCreateHrefWithoutHistoryUsesBasename(t *testing.T) {
	s := store.New(state.Snapshot{}, nil, "/app")
	got := s.CreateHref(loc.Location{Pathname: "/foo"})
	assert.Equal(t, "/app/foo", got)
}

type stubHistory struct {
	href string
}

func (h stubHistory) Action() loc.HistoryAction     { return loc.ActionPop }
func (h stubHistory) Location() loc.Location        { return loc.Location{} }
func (h stubHistory) Push(string, interface{}) loc.Location    { return loc.Location{} }
func (h stubHistory) Replace(string, interface{}) loc.Location { return loc.Location{} }
func (h stubHistory) Go(int)                        {}
func (h stubHistory) CreateHref(loc.Location) string { return h.href }
func (h stubHistory) Listen(func(loc.HistoryAction, loc.Location)) func() { return func() {} }

func TestCreateHrefDelegatesToHistory(t *testing.T) {
	s := store.New(state.Snapshot{}, stubHistory{href: "/delegated"}, "/ignored")
	assert.Equal(t, "/delegated", s.CreateHref(loc.Location{}))
}
