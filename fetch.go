package navrouter

import (
	"context"
	"strings"

	"github.com/wayfarer-dev/navrouter/engine"
	"github.com/wayfarer-dev/navrouter/loc"
	"github.com/wayfarer-dev/navrouter/match"
	"github.com/wayfarer-dev/navrouter/plan"
	"github.com/wayfarer-dev/navrouter/redirectx"
	"github.com/wayfarer-dev/navrouter/route"
	"github.com/wayfarer-dev/navrouter/state"
)

// Fetch runs an independent, keyed loader or action call against href
// without changing the current location. A successful action fetch
// additionally revalidates the current page's loaders, the same way a
// navigation action reload does.
func (r *Router) Fetch(key, href string, opts FetchOptions) <-chan struct{} {
	done := make(chan struct{})

	r.mu.Lock()
	dest := loc.Parse(href)
	matches := r.matcher.Match(r.top, dest.Pathname)
	isSubmission := opts.FormMethod != "" && !strings.EqualFold(opts.FormMethod, "GET")

	ctrl := r.fetchers.Start(context.Background(), key)
	r.fetchers.Set(key, state.Fetcher{
		State:       fetcherState(isSubmission),
		Type:        fetcherType(isSubmission),
		FormMethod:  opts.FormMethod,
		FormEncType: opts.FormEncType,
		FormData:    opts.FormData,
	})
	r.publishFetchersLocked()
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.runFetch(ctrl, key, matches, dest, opts, isSubmission)
	}()

	return done
}

func fetcherState(submission bool) state.FetcherState {
	if submission {
		return state.FetcherSubmitting
	}
	return state.FetcherLoading
}

func fetcherType(submission bool) state.FetcherType {
	if submission {
		return state.FetcherActionSubmission
	}
	return state.FetcherNormalLoad
}

func (r *Router) runFetch(ctrl *engine.Controller, key string, matches []match.Match, dest loc.Location, opts FetchOptions, isSubmission bool) {
	if matches == nil {
		if !r.fetchers.Owns(key, ctrl) {
			return
		}
		r.fetchers.Set(key, state.Fetcher{State: state.FetcherIdle, Type: state.FetcherDone})
		r.publishFetcherException(rootBoundaryID(r.top), redirectx.NotFound().Value)
		return
	}

	if isSubmission {
		target := match.SubmissionTarget(matches, dest.Search)
		if !target.Route.HasAction() {
			if !r.fetchers.Owns(key, ctrl) {
				return
			}
			res := redirectx.MethodNotAllowed(target.Route.Id)
			r.fetchers.Set(key, state.Fetcher{State: state.FetcherIdle, Type: state.FetcherDone})
			r.publishFetcherException(redirectx.Boundary(target.Route).Id, res.Value)
			return
		}

		args := r.argsFor(target, opts.FormMethod, opts.FormEncType, opts.FormData, dest)
		res := engine.RunAction(ctrl, target.Route.Id, func(ctx context.Context, signal <-chan struct{}) (interface{}, error) {
			args.Signal = signal
			return target.Route.Action(args)
		})
		if res.Aborted || !r.fetchers.Owns(key, ctrl) {
			return
		}

		switch res.Kind {
		case state.ResultRedirect:
			r.fetchers.Set(key, state.Fetcher{State: state.FetcherIdle, Type: state.FetcherActionRedirect})
			r.publishFetchers()
			r.followRedirect(res)
			return
		case state.ResultException:
			// §7: an action exception surfaces via state.Exceptions at
			// the nearest boundary, the same as a navigation's action
			// exception (navigate.go) — it is not fetcher-local data.
			r.fetchers.Set(key, state.Fetcher{State: state.FetcherIdle, Type: state.FetcherDone})
			r.publishFetcherException(redirectx.Boundary(target.Route).Id, res.Value)
			r.revalidateCurrent(plan.KindActionReload)
			return
		case state.ResultData:
			r.fetchers.Set(key, state.Fetcher{State: state.FetcherLoading, Type: state.FetcherActionReload, Data: res.Value})
			r.publishFetchers()
			r.revalidateCurrent(plan.KindActionReload)
			r.fetchers.Set(key, state.Fetcher{State: state.FetcherIdle, Type: state.FetcherDone, Data: res.Value})
			r.publishFetchers()
			return
		}
		return
	}

	leaf := matches[len(matches)-1]
	args := r.argsFor(leaf, "", "", nil, dest)
	res := engine.RunAction(ctrl, leaf.Route.Id, func(ctx context.Context, signal <-chan struct{}) (interface{}, error) {
		args.Signal = signal
		if leaf.Route.HasLoader() {
			return leaf.Route.Loader(args)
		}
		return nil, nil
	})
	if res.Aborted || !r.fetchers.Owns(key, ctrl) {
		return
	}

	switch res.Kind {
	case state.ResultRedirect:
		r.followRedirect(res)
	case state.ResultException:
		r.fetchers.Set(key, state.Fetcher{State: state.FetcherIdle, Type: state.FetcherDone})
		r.publishFetcherException(redirectx.Boundary(leaf.Route).Id, res.Value)
	default:
		r.fetchers.Set(key, state.Fetcher{State: state.FetcherIdle, Type: state.FetcherDone, Data: res.Value})
		r.publishFetchers()
	}
}

func (r *Router) publishFetchersLocked() {
	snap := r.st.Get()
	snap.Fetchers = r.fetchers.Snapshot()
	r.st.Commit(snap)
}

// publishFetcherException commits a fetcher-sourced exception at
// boundaryID into state.Exceptions, clearing any stale loaderData for
// that id — the boundary-routing counterpart of publishFetchers for the
// case where a fetcher's loader/action threw rather than returned data.
func (r *Router) publishFetcherException(boundaryID string, value interface{}) {
	snap := r.st.Get()
	snap.Fetchers = r.fetchers.Snapshot()
	exceptions := copyIface(snap.Exceptions)
	loaderData := copyIface(snap.LoaderData)
	exceptions[boundaryID] = value
	delete(loaderData, boundaryID)
	snap.Exceptions = exceptions
	snap.LoaderData = loaderData
	r.st.Commit(snap)
}

// revalidateCurrent reruns currently matched routes' loaders in place, the
// way an action fetch's side effects are reflected on the page that
// triggered them. kind is KindActionReload for a fetcher's post-action
// reload or KindRevalidate for an explicit Revalidate() call; either way
// each route's ShouldReload hook is still consulted per §4.3 rule 4 —
// revalidation is vetoable, not forced. ForceRevalidateAll is reserved for
// the X-Remix-Revalidate redirect case, handled in runNavigation instead.
func (r *Router) revalidateCurrent(kind plan.Kind) {
	r.mu.Lock()
	current := r.st.Get()
	matches := current.Matches
	if matches == nil {
		r.mu.Unlock()
		return
	}
	ctrl := r.revalidateSlot.Start(context.Background())

	pending := current
	pending.Revalidating = true
	r.st.Commit(pending)
	r.mu.Unlock()

	req := plan.Request{
		Kind:          kind,
		CurrentSearch: current.Location.Search,
		NextSearch:    current.Location.Search,
		ShouldReload:  r.shouldReloadHook(current, matches, current.Location),
	}
	p := plan.Plan(matches, matches, req)

	calls := engine.BuildCalls(r.routesByIDs(p.LoaderRouteIDs), func(rt *route.Route) route.Args {
		return r.argsFor(findMatch(matches, rt.Id), "", "", nil, current.Location)
	})
	results := engine.RunLoaders(ctrl, calls)
	if !r.revalidateSlot.Owns(ctrl) {
		return
	}

	loaderData := copyIface(current.LoaderData)
	exceptions := copyIface(current.Exceptions)
	for _, res := range results {
		if res.Aborted {
			return
		}
		switch res.Kind {
		case state.ResultRedirect:
			r.followRedirect(res)
			return
		case state.ResultException:
			b := boundaryFor(matches, res.RouteID)
			exceptions[b] = res.Value
			delete(loaderData, b)
		case state.ResultData:
			loaderData[res.RouteID] = res.Value
			delete(exceptions, res.RouteID)
		}
	}

	snap := r.st.Get()
	snap.LoaderData = loaderData
	snap.Exceptions = exceptions
	snap.Revalidating = false
	snap.Transition = state.IdleTransition
	r.st.Commit(snap)
}

// Revalidate requests a reload of every loader on the current page,
// subject to each route's ShouldReload veto per §4.3 rule 4.
func (r *Router) Revalidate() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.revalidateCurrent(plan.KindRevalidate)
	}()
	return done
}
