package navrouter

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/wayfarer-dev/navrouter/engine"
	"github.com/wayfarer-dev/navrouter/loc"
	"github.com/wayfarer-dev/navrouter/match"
	"github.com/wayfarer-dev/navrouter/plan"
	"github.com/wayfarer-dev/navrouter/redirectx"
	"github.com/wayfarer-dev/navrouter/route"
	"github.com/wayfarer-dev/navrouter/state"
)

// Navigate drives one push/replace/submission cycle. It returns a channel
// closed once the cycle settles (committed or superseded), the Go
// equivalent of the Promise a JS caller would await.
func (r *Router) Navigate(to string, opts NavigateOptions) <-chan struct{} {
	return r.navigate(to, opts, false)
}

// navigate is Navigate's implementation, plus forceRevalidateAll: set by
// followRedirect when the redirect response carried X-Remix-Revalidate:
// yes, so the resulting loader run ignores every route's ShouldReload.
func (r *Router) navigate(to string, opts NavigateOptions, forceRevalidateAll bool) <-chan struct{} {
	done := make(chan struct{})

	r.mu.Lock()
	current := r.st.Get()

	dest := loc.Parse(to)
	// A bare "#..."/"?..." reference carries no pathname (and, for "#...",
	// no search either) of its own; resolve it against current the way a
	// relative href resolves in a browser, so the comparison below sees
	// the destination it actually names rather than an empty pathname.
	if strings.HasPrefix(to, "#") || strings.HasPrefix(to, "?") {
		dest.Pathname = current.Location.Pathname
		if strings.HasPrefix(to, "#") {
			dest.Search = current.Location.Search
		}
	}

	isSubmission := opts.FormMethod != "" && !strings.EqualFold(opts.FormMethod, "GET")

	// §4.3 rule 8 / §8 "Hash-only navigation": pathname+search unchanged
	// means no loader runs and the transition stays idle, regardless of
	// whether the caller spelled the destination as a bare fragment or a
	// full path carrying the same pathname+search with a new hash. A
	// forced revalidation (forceRevalidateAll) never takes this path.
	if !isSubmission && !forceRevalidateAll && dest.Pathname == current.Location.Pathname && dest.Search == current.Location.Search {
		defer r.mu.Unlock()
		r.commitHashOnly(current, dest.Hash, opts.Replace)
		close(done)
		return done
	}

	matches := r.matcher.Match(r.top, dest.Pathname)

	ctrl := r.navSlot.Start(context.Background())
	// §4.6: a new navigation subsumes any revalidation a fetcher's
	// post-action reload (or an explicit Revalidate()) has in flight.
	r.revalidateSlot.Abort()

	pending := current
	pending.Transition = state.Transition{
		State:       transitionState(isSubmission),
		Type:        transitionType(isSubmission),
		Location:    &dest,
		FormMethod:  opts.FormMethod,
		FormEncType: opts.FormEncType,
		FormData:    opts.FormData,
	}
	r.st.Commit(pending)
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.runNavigation(ctrl, current, dest, matches, opts, forceRevalidateAll)
	}()

	return done
}

func transitionState(submission bool) state.TransitionState {
	if submission {
		return state.Submitting
	}
	return state.Loading
}

func transitionType(submission bool) state.TransitionType {
	if submission {
		return state.TransitionActionSubmission
	}
	return state.TransitionNormalLoad
}

func (r *Router) commitHashOnly(current state.Snapshot, hash string, replace bool) {
	next := current.Location
	next.Hash = hash
	next = next.WithKey("")

	if replace {
		r.history.Replace(next.Path(), nil)
	} else {
		r.history.Push(next.Path(), nil)
	}

	snap := current
	snap.Location = next
	snap.HistoryAction = r.history.Action()
	r.st.Commit(snap)
}

// runNavigation performs the async half of the navigation lifecycle:
// synthesize 404/405, run an action if submitting, plan and run loaders,
// resolve redirects, and commit the settled snapshot.
func (r *Router) runNavigation(ctrl *engine.Controller, current state.Snapshot, dest loc.Location, matches []match.Match, opts NavigateOptions, forceRevalidateAll bool) {
	if matches == nil {
		if !r.navSlot.Owns(ctrl) {
			return
		}
		res := redirectx.NotFound()
		r.commitTerminal(current, dest, opts, nil, nil, map[string]interface{}{rootBoundaryID(r.top): res.Value}, nil)
		return
	}

	isSubmission := opts.FormMethod != "" && !strings.EqualFold(opts.FormMethod, "GET")

	actionData := copyIface(current.ActionData)
	exceptions := map[string]interface{}{}
	boundaryID := ""

	if isSubmission {
		target := match.SubmissionTarget(matches, dest.Search)
		if !target.Route.HasAction() {
			if !r.navSlot.Owns(ctrl) {
				return
			}
			res := redirectx.MethodNotAllowed(target.Route.Id)
			b := redirectx.Boundary(target.Route)
			r.commitTerminal(current, dest, opts, nil, nil, map[string]interface{}{b.Id: res.Value}, nil)
			return
		}

		args := r.argsFor(target, opts.FormMethod, opts.FormEncType, opts.FormData, dest)
		res := engine.RunAction(ctrl, target.Route.Id, func(ctx context.Context, signal <-chan struct{}) (interface{}, error) {
			args.Signal = signal
			return target.Route.Action(args)
		})
		if res.Aborted || !r.navSlot.Owns(ctrl) {
			return
		}

		switch res.Kind {
		case state.ResultRedirect:
			r.followRedirect(res)
			return
		case state.ResultException:
			b := redirectx.Boundary(target.Route)
			exceptions[b.Id] = res.Value
			boundaryID = b.Id
			delete(actionData, target.Route.Id)
			r.setLastActionPath(dest)
		case state.ResultData:
			actionData[target.Route.Id] = res.Value
			r.setLastActionPath(dest)
		}
	}

	req := plan.Request{
		Kind:               planKind(isSubmission),
		CurrentSearch:      current.Location.Search,
		NextSearch:         dest.Search,
		ForceRevalidateAll: forceRevalidateAll,
		ShouldReload:       r.shouldReloadHook(current, matches, dest),
	}
	p := plan.Plan(current.Matches, matches, req)
	loaderIDs := p.LoaderRouteIDs
	if boundaryID != "" {
		loaderIDs = plan.FilterBelowBoundary(loaderIDs, matches, boundaryID)
	}

	calls := engine.BuildCalls(r.routesByIDs(loaderIDs), func(rt *route.Route) route.Args {
		return r.argsFor(findMatch(matches, rt.Id), "", "", nil, dest)
	})
	results := engine.RunLoaders(ctrl, calls)
	if !r.navSlot.Owns(ctrl) {
		r.log.WithField("destination", dest.Path()).Debug("navrouter: discarding aborted navigation's loader batch")
		return
	}

	loaderData := mergeLoaderData(current.LoaderData, p.PreserveRouteIDs, matches)
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
			r.log.WithFields(log.Fields{"route": res.RouteID, "boundary": b}).Debug("navrouter: loader exception routed to boundary")
			exceptions[b] = res.Value
			delete(loaderData, b)
		case state.ResultData:
			loaderData[res.RouteID] = res.Value
			delete(exceptions, res.RouteID)
		}
	}

	r.commitTerminal(current, dest, opts, loaderData, actionData, exceptions, matches)
}

func planKind(isSubmission bool) plan.Kind {
	if isSubmission {
		return plan.KindActionReload
	}
	return plan.KindNormalLoad
}

func (r *Router) shouldReloadHook(current state.Snapshot, next []match.Match, dest loc.Location) func(id string, cp, np map[string]string, cu, nu string) (bool, bool) {
	return func(id string, cp, np map[string]string, cu, nu string) (bool, bool) {
		rt := r.byID[id]
		if rt == nil || rt.ShouldReload == nil {
			return false, false
		}
		reload := rt.ShouldReload(route.ReloadArgs{
			CurrentParams: cp,
			NextParams:    np,
			CurrentURL:    cu,
			NextURL:       nu,
			DefaultValue:  true,
		})
		return reload, true
	}
}

func (r *Router) routesByIDs(ids []string) []*route.Route {
	out := make([]*route.Route, 0, len(ids))
	for _, id := range ids {
		if rt := r.byID[id]; rt != nil {
			out = append(out, rt)
		}
	}
	return out
}

func findMatch(matches []match.Match, routeID string) match.Match {
	for _, m := range matches {
		if m.Route.Id == routeID {
			return m
		}
	}
	return match.Match{}
}

// mergeLoaderData starts from prev, restricted to the routes still present
// in next — committed data belongs only to currently matched routes, so
// stale keys from the old match chain are dropped.
func mergeLoaderData(prev map[string]interface{}, preserveIDs []string, next []match.Match) map[string]interface{} {
	keep := make(map[string]bool, len(preserveIDs))
	for _, id := range preserveIDs {
		keep[id] = true
	}
	out := map[string]interface{}{}
	for _, m := range next {
		if v, ok := prev[m.Route.Id]; ok && keep[m.Route.Id] {
			out[m.Route.Id] = v
		}
	}
	return out
}

// commitTerminal lands a settled navigation: push/replace history, then
// publish the final snapshot.
func (r *Router) commitTerminal(current state.Snapshot, dest loc.Location, opts NavigateOptions, loaderData, actionData, exceptions map[string]interface{}, matches []match.Match) {
	var next loc.Location
	if opts.Replace {
		next = r.history.Replace(dest.Path(), nil)
	} else {
		next = r.history.Push(dest.Path(), nil)
	}

	if loaderData == nil {
		loaderData = map[string]interface{}{}
	}
	if actionData == nil {
		actionData = map[string]interface{}{}
	}
	// §3: actionData belongs only to the submission location that
	// produced it; a navigation settling anywhere else clears it.
	if r.actionDataStale(next) {
		actionData = map[string]interface{}{}
		r.clearLastActionPath()
	}

	snap := state.Snapshot{
		HistoryAction: r.history.Action(),
		Location:      next,
		Matches:       matches,
		Initialized:   true,
		Transition:    state.IdleTransition,
		LoaderData:    loaderData,
		ActionData:    actionData,
		Exceptions:    exceptions,
		Fetchers:      current.Fetchers,
	}
	r.st.Commit(snap)
}

// followRedirect implements the redirect-chain rule: treat the target as
// a fresh replace-navigation, preserving neither loaderData nor actionData
// from the cycle that produced it. An X-Remix-Revalidate: yes response
// (res.RevalidateAll) forces the resulting loader run to ignore every
// route's ShouldReload, per §4.5's last bullet.
func (r *Router) followRedirect(res state.Result) {
	r.log.WithFields(log.Fields{"from": res.RouteID, "to": res.RedirectTo, "status": res.Status, "revalidateAll": res.RevalidateAll}).Debug("navrouter: following redirect")
	<-r.navigate(res.RedirectTo, NavigateOptions{Replace: true}, res.RevalidateAll)
}

// handlePop reacts to an externally-driven POP (e.g. browser back/forward)
// by replaying it as a replace-free navigation that doesn't push a new
// history entry.
func (r *Router) handlePop(_ loc.HistoryAction, l loc.Location) {
	r.mu.Lock()
	current := r.st.Get()
	matches := r.matcher.Match(r.top, l.Pathname)
	ctrl := r.navSlot.Start(context.Background())
	r.revalidateSlot.Abort()

	pending := current
	pending.Transition = state.Transition{State: state.Loading, Type: state.TransitionNormalLoad, Location: &l}
	r.st.Commit(pending)
	r.mu.Unlock()

	go r.runPop(ctrl, current, l, matches)
}

func (r *Router) runPop(ctrl *engine.Controller, current state.Snapshot, dest loc.Location, matches []match.Match) {
	if matches == nil {
		if !r.navSlot.Owns(ctrl) {
			return
		}
		res := redirectx.NotFound()
		r.commitPop(current, dest, nil, map[string]interface{}{rootBoundaryID(r.top): res.Value}, nil)
		return
	}

	req := plan.Request{
		Kind:          plan.KindNormalLoad,
		CurrentSearch: current.Location.Search,
		NextSearch:    dest.Search,
		ShouldReload:  r.shouldReloadHook(current, matches, dest),
	}
	p := plan.Plan(current.Matches, matches, req)

	calls := engine.BuildCalls(r.routesByIDs(p.LoaderRouteIDs), func(rt *route.Route) route.Args {
		return r.argsFor(findMatch(matches, rt.Id), "", "", nil, dest)
	})
	results := engine.RunLoaders(ctrl, calls)
	if !r.navSlot.Owns(ctrl) {
		return
	}

	loaderData := mergeLoaderData(current.LoaderData, p.PreserveRouteIDs, matches)
	exceptions := map[string]interface{}{}
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
			r.log.WithFields(log.Fields{"route": res.RouteID, "boundary": b}).Debug("navrouter: loader exception routed to boundary")
			exceptions[b] = res.Value
			delete(loaderData, b)
		case state.ResultData:
			loaderData[res.RouteID] = res.Value
		}
	}

	r.commitPop(current, dest, loaderData, exceptions, matches)
}

func (r *Router) commitPop(current state.Snapshot, dest loc.Location, loaderData, exceptions map[string]interface{}, matches []match.Match) {
	if loaderData == nil {
		loaderData = map[string]interface{}{}
	}
	// A POP always lands on a fresh location; actionData never survives
	// it, so any pending submission-location tracking is moot too.
	r.clearLastActionPath()
	snap := state.Snapshot{
		HistoryAction: loc.ActionPop,
		Location:      dest,
		Matches:       matches,
		Initialized:   true,
		Transition:    state.IdleTransition,
		LoaderData:    loaderData,
		ActionData:    map[string]interface{}{},
		Exceptions:    exceptions,
		Fetchers:      current.Fetchers,
	}
	r.st.Commit(snap)
}
