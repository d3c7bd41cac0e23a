// Package loc defines the location value type the router navigates between
// and the narrow History interface it is consumed through.
//
// Matching skipper's layering (routing.DataClient is a narrow interface
// consumed by the routing package, never implemented by it), History here
// is a boundary the router calls through; browser and hash history adapters
// live outside this module, and loc/memhistory provides an in-memory one.
package loc

import (
	"strings"

	"github.com/google/uuid"
)

// HistoryAction mirrors the three actions a History implementation can
// report for the current entry.
type HistoryAction string

const (
	ActionPop     HistoryAction = "POP"
	ActionPush    HistoryAction = "PUSH"
	ActionReplace HistoryAction = "REPLACE"
)

// Location is an immutable navigation target. Key is a stable opaque
// identifier assigned once, on creation, and preserved across the
// transition that lands it.
type Location struct {
	Pathname string
	Search   string
	Hash     string
	State    interface{}
	Key      string
}

// NewKey generates a fresh, collision-resistant location key. Grounded on
// the pack's convention of using google/uuid for opaque request/entry ids
// (rivaas-dev-rivaas/router/middleware/requestid, EdgeComet-engine's
// internal/common/requestid).
func NewKey() string {
	return uuid.NewString()[:8]
}

// WithKey returns a copy of l with Key set, generating one if empty.
func (l Location) WithKey(key string) Location {
	if key == "" {
		key = NewKey()
	}
	l.Key = key
	return l
}

// Path returns pathname+search+hash concatenated the way a History
// adapter's CreateHref would, ignoring basename.
func (l Location) Path() string {
	p := l.Pathname
	if l.Search != "" {
		p += l.Search
	}
	if l.Hash != "" {
		p += l.Hash
	}
	return p
}

// Parse splits a "to" string (pathname[?search][#hash]) into a Location,
// without assigning a Key. Grounded on the minimal URL slicing every
// History-like adapter in skipper's pack performs ahead of matching.
func Parse(to string) Location {
	l := Location{}
	if i := strings.IndexByte(to, '#'); i >= 0 {
		l.Hash = to[i:]
		to = to[:i]
	}
	if i := strings.IndexByte(to, '?'); i >= 0 {
		l.Search = to[i:]
		to = to[:i]
	}
	l.Pathname = to
	return l
}

// History is the external collaborator the router drives: it produces
// location records and performs push/replace/go, and notifies listeners
// of POP navigations (e.g. browser back/forward). The router never
// implements this itself; it is consumed through this interface.
type History interface {
	Action() HistoryAction
	Location() Location
	Push(to string, state interface{}) Location
	Replace(to string, state interface{}) Location
	Go(delta int)
	CreateHref(l Location) string
	Listen(func(HistoryAction, Location)) (unsubscribe func())
}
