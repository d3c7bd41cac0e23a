// Package fetcher implements the Fetcher Manager: a registry of
// independent, keyed loader/action state machines, each owning at most
// one engine.Controller at a time.
//
// Grounded on circuit.Registry, which keeps a map of per-key state
// (there, *Breaker; here, state.Fetcher) behind the same "synced via a
// buffered channel" pattern, evicting/creating entries as keys come and
// go.
package fetcher

import (
	"context"

	"github.com/wayfarer-dev/navrouter/engine"
	"github.com/wayfarer-dev/navrouter/state"
)

// Manager owns every active fetcher's state and controller, keyed by the
// caller-supplied string.
type Manager struct {
	mu       chan struct{}
	fetchers map[string]state.Fetcher
	slots    map[string]*engine.Slot
}

// New creates an empty Manager.
func New() *Manager {
	m := &Manager{
		mu:       make(chan struct{}, 1),
		fetchers: make(map[string]state.Fetcher),
		slots:    make(map[string]*engine.Slot),
	}
	m.mu <- struct{}{}
	return m
}

func (m *Manager) synced(f func()) {
	<-m.mu
	f()
	m.mu <- struct{}{}
}

// Get returns the fetcher state for key, or state.IdleFetcher if key is
// unknown.
func (m *Manager) Get(key string) state.Fetcher {
	var f state.Fetcher
	found := false
	m.synced(func() {
		f, found = m.fetchers[key]
	})
	if !found {
		return state.IdleFetcher
	}
	return f
}

// Set installs the fetcher state for key, creating the entry if it did
// not exist.
func (m *Manager) Set(key string, f state.Fetcher) {
	m.synced(func() {
		m.fetchers[key] = f
	})
}

// Delete removes key's fetcher and aborts its controller, if any.
func (m *Manager) Delete(key string) {
	m.synced(func() {
		if slot, ok := m.slots[key]; ok {
			slot.Abort()
			delete(m.slots, key)
		}
		delete(m.fetchers, key)
	})
}

// Start begins a new cycle for key, aborting any controller already
// running under that key.
func (m *Manager) Start(ctx context.Context, key string) *engine.Controller {
	var slot *engine.Slot
	m.synced(func() {
		slot = m.slots[key]
		if slot == nil {
			slot = engine.NewSlot()
			m.slots[key] = slot
		}
	})
	return slot.Start(ctx)
}

// Owns reports whether ctrl is still key's current, unsuperseded
// controller.
func (m *Manager) Owns(key string, ctrl *engine.Controller) bool {
	var slot *engine.Slot
	m.synced(func() { slot = m.slots[key] })
	if slot == nil {
		return false
	}
	return slot.Owns(ctrl)
}

// Snapshot returns a shallow copy of every known fetcher, for inclusion
// in state.Snapshot.Fetchers.
func (m *Manager) Snapshot() map[string]state.Fetcher {
	out := make(map[string]state.Fetcher)
	m.synced(func() {
		for k, v := range m.fetchers {
			out[k] = v
		}
	})
	return out
}

// DebugControllers exposes each live key's abort liveness, grounding the
// test-only `_internalFetchControllers` observable.
func (m *Manager) DebugControllers() map[string]bool {
	out := make(map[string]bool)
	m.synced(func() {
		for k, slot := range m.slots {
			c := slot.Current()
			out[k] = c != nil && !c.Aborted()
		}
	})
	return out
}
