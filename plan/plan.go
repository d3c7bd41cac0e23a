// Package plan implements the Transition Planner: given current and next
// matches and a request, it decides which loaders to run and which
// matched ids should retain their existing loader data untouched. Which
// action a submission dispatches to is decided by the caller, not here.
//
// Grounded on skipper's route-table diffing in
// routing.Routing.startReceivingUpdates (old table vs. new table, deciding
// what changed) and on circuit.BreakerSettings.mergeSettings's style of a
// small, pure decision function consuming explicit "current vs requested"
// settings — here generalized to loader selection across a navigation.
package plan

import "github.com/wayfarer-dev/navrouter/match"

// Kind is the request kind driving loader-selection rules.
type Kind int

const (
	KindNormalLoad Kind = iota
	KindRevalidate
	KindActionReload
	KindHashOnly
)

// Request carries everything the planner needs beyond the match lists.
type Request struct {
	Kind Kind

	// CurrentSearch/NextSearch let rule 3 detect a search-only change.
	CurrentSearch string
	NextSearch    string

	// ForceRevalidateAll corresponds to the X-Remix-Revalidate: yes
	// redirect response header: when true, every kept match's loader
	// runs regardless of ShouldReload.
	ForceRevalidateAll bool

	// ShouldReload evaluates a route's declared ShouldReload hook, if
	// any. Returning (consulted=false) means the route declares none.
	ShouldReload func(routeID string, currentParams, nextParams map[string]string, currentURL, nextURL string) (shouldReload bool, consulted bool)
}

// Decision is the planner's output for a navigation.
type Decision struct {
	// LoaderRouteIDs is the ordered (root→leaf) set of route ids whose
	// loader must run.
	LoaderRouteIDs []string

	// PreserveRouteIDs is the set of currently-matched route ids whose
	// existing loaderData is kept as-is (matched, but not re-run).
	PreserveRouteIDs []string

	// NewRouteIDs is the subset of LoaderRouteIDs that are new matches
	// (rule 1) — never have prior loaderData to preserve on abort.
	NewRouteIDs []string
}

// Plan computes the loader-selection decision of rules 1-5. Rule 6
// (boundary exclusion after an action exception) is applied separately by
// FilterBelowBoundary once the boundary is known, since it depends on the
// action's outcome, which the planner does not decide.
func Plan(current, next []match.Match, req Request) Decision {
	if req.Kind == KindHashOnly {
		return Decision{}
	}

	currentByID := make(map[string]match.Match, len(current))
	for _, m := range current {
		currentByID[m.Route.Id] = m
	}

	var p Decision
	for _, m := range next {
		id := m.Route.Id
		prev, wasMatched := currentByID[id]

		if !wasMatched {
			// Rule 1: new match.
			p.LoaderRouteIDs = append(p.LoaderRouteIDs, id)
			p.NewRouteIDs = append(p.NewRouteIDs, id)
			continue
		}

		if !paramsEqual(prev.Params, m.Params) {
			// Rule 2: kept match, params changed.
			p.LoaderRouteIDs = append(p.LoaderRouteIDs, id)
			continue
		}

		if !m.Route.HasLoader() {
			p.PreserveRouteIDs = append(p.PreserveRouteIDs, id)
			continue
		}

		searchChanged := req.CurrentSearch != req.NextSearch
		isActionReload := req.Kind == KindActionReload
		isRevalidate := req.Kind == KindRevalidate

		switch {
		case req.ForceRevalidateAll:
			// X-Remix-Revalidate: yes overrides every other case below,
			// including the plain-navigation default — every kept match
			// reloads unconditionally.
		case searchChanged:
			// Rule 3, vetoable per rule 5.
			if req.shouldSkip(id, prev.Params, m.Params, req.CurrentSearch, req.NextSearch) {
				p.PreserveRouteIDs = append(p.PreserveRouteIDs, id)
				continue
			}
		case isActionReload || isRevalidate:
			// Rule 4, vetoable per rule 5.
			if req.shouldSkip(id, prev.Params, m.Params, req.CurrentSearch, req.NextSearch) {
				p.PreserveRouteIDs = append(p.PreserveRouteIDs, id)
				continue
			}
		default:
			// Same path, same search, plain navigation: the hydration
			// gap is handled by the caller before ever invoking Plan
			// (New's needsInitialLoad check); here, a kept match with
			// nothing changed simply preserves.
			p.PreserveRouteIDs = append(p.PreserveRouteIDs, id)
			continue
		}

		p.LoaderRouteIDs = append(p.LoaderRouteIDs, id)
	}

	return p
}

// shouldSkip applies rule 5: ShouldReload may veto a reload that rules 3/4
// would otherwise trigger. ForceRevalidateAll overrides any veto.
func (req Request) shouldSkip(id string, currentParams, nextParams map[string]string, currentURL, nextURL string) bool {
	if req.ForceRevalidateAll {
		return false
	}
	if req.ShouldReload == nil {
		return false
	}
	reload, consulted := req.ShouldReload(id, currentParams, nextParams, currentURL, nextURL)
	if !consulted {
		return false
	}
	return !reload
}

func paramsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// FilterBelowBoundary removes from loaderIDs any route id that is a strict
// descendant of boundaryID within matches — rule 6: loaders below the
// boundary route are skipped; loaders at or above the boundary still run.
func FilterBelowBoundary(loaderIDs []string, matches []match.Match, boundaryID string) []string {
	if boundaryID == "" {
		return loaderIDs
	}

	below := make(map[string]bool)
	for _, m := range matches {
		for p := m.Route.Parent; p != nil; p = p.Parent {
			if p.Id == boundaryID {
				below[m.Route.Id] = true
				break
			}
		}
	}

	out := loaderIDs[:0:0]
	for _, id := range loaderIDs {
		if !below[id] {
			out = append(out, id)
		}
	}
	return out
}
