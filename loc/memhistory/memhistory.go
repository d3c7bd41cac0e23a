// Package memhistory is a reference, in-memory implementation of loc.History,
// used by navrouter's own tests and suitable for non-browser embeddings
// (CLIs, servers driving the router headlessly).
//
// It plays the same role testdataclient plays for routing.DataClient in the
// teacher: a small, dependency-free stand-in for an external collaborator,
// shipped so the package is testable and usable without a real browser.
package memhistory

import (
	"sync"

	"github.com/wayfarer-dev/navrouter/loc"
)

// History is an in-memory stack-based history, supporting push/replace/go
// and listener notification.
type History struct {
	mu        sync.Mutex
	basename  string
	stack     []loc.Location
	index     int
	action    loc.HistoryAction
	listeners []func(loc.HistoryAction, loc.Location)
}

// New creates a History seeded at the given path.
func New(basename, initial string) *History {
	h := &History{
		basename: basename,
		action:   loc.ActionPop,
	}
	h.stack = []loc.Location{loc.Parse(initial).WithKey("")}
	return h
}

func (h *History) Action() loc.HistoryAction {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.action
}

func (h *History) Location() loc.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stack[h.index]
}

func (h *History) Push(to string, state interface{}) loc.Location {
	l := loc.Parse(to)
	l.State = state
	l = l.WithKey("")

	h.mu.Lock()
	h.stack = append(h.stack[:h.index+1], l)
	h.index = len(h.stack) - 1
	h.action = loc.ActionPush
	h.mu.Unlock()

	h.notify(loc.ActionPush, l)
	return l
}

func (h *History) Replace(to string, state interface{}) loc.Location {
	l := loc.Parse(to)
	l.State = state

	h.mu.Lock()
	l.Key = h.stack[h.index].Key
	if l.Key == "" {
		l = l.WithKey("")
	}
	h.stack[h.index] = l
	h.action = loc.ActionReplace
	h.mu.Unlock()

	h.notify(loc.ActionReplace, l)
	return l
}

func (h *History) Go(delta int) {
	h.mu.Lock()
	next := h.index + delta
	if next < 0 {
		next = 0
	}
	if next >= len(h.stack) {
		next = len(h.stack) - 1
	}
	h.index = next
	h.action = loc.ActionPop
	l := h.stack[h.index]
	h.mu.Unlock()

	h.notify(loc.ActionPop, l)
}

func (h *History) CreateHref(l loc.Location) string {
	return h.basename + l.Path()
}

func (h *History) Listen(fn func(loc.HistoryAction, loc.Location)) func() {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	idx := len(h.listeners) - 1
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.listeners[idx] = nil
		h.mu.Unlock()
	}
}

func (h *History) notify(a loc.HistoryAction, l loc.Location) {
	h.mu.Lock()
	fns := append([]func(loc.HistoryAction, loc.Location){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range fns {
		if fn != nil {
			fn(a, l)
		}
	}
}
