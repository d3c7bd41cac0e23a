// Package route implements the route tree normalizer and the data route
// type. It assigns stable ids to routes lacking one, rejects
// duplicate ids and empty trees, and produces a parallel, immutable "data
// route" tree without mutating the caller's input — grounded on skipper's
// routing.Route, which wraps a caller-supplied eskip.Route with
// preprocessed, router-owned fields rather than mutating the original
// definition.
package route

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRoutes is returned from Normalize when the input tree is empty
// or contains duplicate ids.
var ErrInvalidRoutes = errors.New("invalid routes")

// LoaderFunc and ActionFunc are the capability-bearing optional functions a
// route may declare.
type LoaderFunc func(Args) (interface{}, error)
type ActionFunc func(Args) (interface{}, error)

// ShouldReloadFunc implements the reload-veto hook.
type ShouldReloadFunc func(ReloadArgs) bool

// Args is passed to a loader or action.
type Args struct {
	Params      map[string]string
	URL         string
	Signal      <-chan struct{}
	FormMethod  string
	FormEncType string
	FormData    map[string][]string
}

// ReloadArgs is passed to ShouldReloadFunc.
type ReloadArgs struct {
	CurrentParams map[string]string
	NextParams    map[string]string
	CurrentURL    string
	NextURL       string
	ActionResult  interface{}
	DefaultValue  bool
}

// Def is the caller-supplied route definition. Children form the input
// tree; Normalize walks it depth-first and never mutates it.
type Def struct {
	ID                string
	Path              string
	Index             bool
	Children          []*Def
	Loader            LoaderFunc
	Action            ActionFunc
	ShouldReload      ShouldReloadFunc
	ExceptionBoundary bool
}

// Route is a normalized, data-bearing route: Def plus a stable Id and a
// materialized parent/child pointer chain, forming the "data route" tree.
type Route struct {
	Id                string
	Path              string
	Index             bool
	Loader            LoaderFunc
	Action            ActionFunc
	ShouldReload      ShouldReloadFunc
	ExceptionBoundary bool

	Parent   *Route
	Children []*Route
}

// HasLoader and HasAction report capability presence.
func (r *Route) HasLoader() bool { return r != nil && r.Loader != nil }
func (r *Route) HasAction() bool { return r != nil && r.Action != nil }

// Ancestors returns r and its ancestors, leaf first (r, parent, grandparent, ...).
func (r *Route) Ancestors() []*Route {
	var out []*Route
	for n := r; n != nil; n = n.Parent {
		out = append(out, n)
	}
	return out
}

// Boundary returns the nearest ancestor (inclusive) of r declaring
// ExceptionBoundary. If none declares one, the root of the tree is the
// implicit boundary.
func (r *Route) Boundary() *Route {
	var root *Route
	for n := r; n != nil; n = n.Parent {
		root = n
		if n.ExceptionBoundary {
			return n
		}
	}
	return root
}

// Normalize walks defs depth-first, assigning ids (path-index strings like
// "0-0-1") to any Def lacking one, and returns the top-level Routes (with
// their descendants linked through Children) plus a lookup by id covering
// every route in the tree; Flatten produces the flat list. It fails with
// ErrInvalidRoutes if defs is empty or any two routes (assigned or
// explicit) share an id.
func Normalize(defs []*Def) ([]*Route, map[string]*Route, error) {
	if len(defs) == 0 {
		return nil, nil, fmt.Errorf("%w: no routes provided", ErrInvalidRoutes)
	}

	byID := make(map[string]*Route)
	var walk func(def *Def, parent *Route, pos []int) (*Route, error)
	walk = func(def *Def, parent *Route, pos []int) (*Route, error) {
		id := def.ID
		if id == "" {
			parts := make([]string, len(pos))
			for i, p := range pos {
				parts[i] = strconv.Itoa(p)
			}
			id = strings.Join(parts, "-")
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("%w: duplicate route id %q", ErrInvalidRoutes, id)
		}

		r := &Route{
			Id:                id,
			Path:              def.Path,
			Index:             def.Index,
			Loader:            def.Loader,
			Action:            def.Action,
			ShouldReload:      def.ShouldReload,
			ExceptionBoundary: def.ExceptionBoundary,
			Parent:            parent,
		}
		byID[id] = r

		for i, child := range def.Children {
			childPos := append(append([]int{}, pos...), i)
			c, err := walk(child, r, childPos)
			if err != nil {
				return nil, err
			}
			r.Children = append(r.Children, c)
		}
		return r, nil
	}

	top := make([]*Route, 0, len(defs))
	for i, def := range defs {
		r, err := walk(def, nil, []int{i})
		if err != nil {
			return nil, nil, err
		}
		top = append(top, r)
	}

	return top, byID, nil
}

// Flatten returns every route in the tree rooted at top, root-first,
// depth-first — the order the Matcher Adapter consumes.
func Flatten(top []*Route) []*Route {
	var out []*Route
	var walk func(*Route)
	walk = func(r *Route) {
		out = append(out, r)
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, r := range top {
		walk(r)
	}
	return out
}
