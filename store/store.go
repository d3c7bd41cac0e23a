// Package store implements the State Store: the single atomic Snapshot,
// synchronous subscriber fan-out, and history integration.
//
// Grounded on two skipper patterns: routing.Routing's atomic.Value snapshot
// (a routeTable swapped in wholesale on every update, read lock-free) for
// Snapshot storage, and dispatch.Dispatcher's subscriber list for fan-out —
// adapted from dispatch's async per-subscriber channel relay to direct
// synchronous calls, since listeners must observe commits synchronously,
// with no partially-updated state ever observable, which an async relay
// cannot guarantee.
package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wayfarer-dev/navrouter/loc"
	"github.com/wayfarer-dev/navrouter/state"
)

// Store holds the single snapshot and its subscribers.
type Store struct {
	snapshot atomic.Value // state.Snapshot

	mu        sync.Mutex
	listeners map[int]func(state.Snapshot)
	nextID    int

	history  loc.History
	basename string
}

// New creates a Store seeded with the given initial snapshot and wired to
// history for CreateHref.
func New(initial state.Snapshot, history loc.History, basename string) *Store {
	s := &Store{
		listeners: make(map[int]func(state.Snapshot)),
		history:   history,
		basename:  basename,
	}
	s.snapshot.Store(initial)
	return s
}

// Get returns the current snapshot.
func (s *Store) Get() state.Snapshot {
	return s.snapshot.Load().(state.Snapshot)
}

// Commit installs next as the current snapshot and notifies every listener
// synchronously, in subscription order. Commit must only ever be called
// from the single cooperative goroutine the router serializes its
// synchronous work on.
func (s *Store) Commit(next state.Snapshot) {
	s.snapshot.Store(next)

	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(state.Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// Subscribe registers fn to be called after every committed change,
// returning an unsubscribe function.
func (s *Store) Subscribe(fn func(state.Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// CreateHref delegates to history with basename applied.
func (s *Store) CreateHref(l loc.Location) string {
	if s.history != nil {
		return s.history.CreateHref(l)
	}
	return s.basename + l.Path()
}
