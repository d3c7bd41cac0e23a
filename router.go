// Package navrouter is the core of a data-aware client-side router: a
// deterministic state machine coupling URL navigation with per-route data
// fetching, submission handling, revalidation, and independent
// out-of-band fetches.
//
// It is grounded on zalando/skipper at the architectural level rather than
// the line level: skipper couples an atomically-swapped
// routing table (routing.Routing) with concurrent, cancellable request
// handling and a subscriber fan-out (dispatch.Dispatcher); navrouter
// couples an atomically-swapped navigation Snapshot (store.Store) with
// concurrent, cancellable loader/action execution (engine.Controller) and
// the same synchronous subscriber fan-out, generalized from HTTP routes to
// client-side data routes with loaders, actions and fetchers.
package navrouter

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wayfarer-dev/navrouter/engine"
	"github.com/wayfarer-dev/navrouter/fetcher"
	"github.com/wayfarer-dev/navrouter/loc"
	"github.com/wayfarer-dev/navrouter/match"
	"github.com/wayfarer-dev/navrouter/redirectx"
	"github.com/wayfarer-dev/navrouter/route"
	"github.com/wayfarer-dev/navrouter/state"
	"github.com/wayfarer-dev/navrouter/store"
)

func init() {
	engine.SetNormalizer(redirectx.Normalize)
}

// NavigateOptions configures a single Navigate call.
type NavigateOptions struct {
	Replace     bool
	FormMethod  string
	FormEncType string
	FormData    map[string][]string
}

// FetchOptions configures a single Fetch call.
type FetchOptions struct {
	FormMethod  string
	FormEncType string
	FormData    map[string][]string
}

// Router is the constructed navigation state machine. Exported methods are
// safe for concurrent use; the mutex below exists only to serialize the
// synchronous half of each entry point (matching, controller supersession,
// and the transition-state commit) so that no two mutations interleave,
// without needing goroutine-wide locks around the asynchronous loader/action
// work itself.
type Router struct {
	mu sync.Mutex

	top      []*route.Route
	byID     map[string]*route.Route
	matcher  match.Matcher
	history  loc.History
	basename string
	log      *log.Logger

	st       *store.Store
	navSlot  *engine.Slot
	// revalidateSlot owns revalidateCurrent's controller, independent of
	// navSlot: per spec.md §4.6, a fetcher's post-action revalidation
	// must never abort an in-flight navigation, only the reverse (a new
	// navigation subsumes a pending revalidation, handled explicitly in
	// navigate()/handlePop() by aborting this slot alongside starting
	// navSlot).
	revalidateSlot *engine.Slot
	fetchers       *fetcher.Manager

	// lastActionPath tracks the pathname+search actionData was
	// committed against, so a later navigation to a different
	// destination clears it.
	lastActionPath string
}

// New constructs a Router, normalizing the route tree, seeding the initial
// snapshot from HydrationData (or kicking off an initial load if it's
// absent/partial), and subscribing to the supplied History for POP
// navigations.
func New(opts Options) (*Router, error) {
	top, byID, err := route.Normalize(opts.Routes)
	if err != nil {
		return nil, ErrInvalidRoutes
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher = match.Static{}
	}

	logger := opts.Log
	if logger == nil {
		logger = log.StandardLogger()
	}

	r := &Router{
		top:            top,
		byID:           byID,
		matcher:        matcher,
		history:        opts.History,
		basename:       opts.Basename,
		log:            logger,
		navSlot:        engine.NewSlot(),
		revalidateSlot: engine.NewSlot(),
		fetchers:       fetcher.New(),
	}

	initial := opts.History.Location()
	matches := matcher.Match(top, initial.Pathname)

	loaderData := map[string]interface{}{}
	actionData := map[string]interface{}{}
	exceptions := map[string]interface{}{}
	if opts.HydrationData != nil {
		loaderData = copyIface(opts.HydrationData.LoaderData)
		actionData = copyIface(opts.HydrationData.ActionData)
		exceptions = copyIface(opts.HydrationData.Exceptions)
	}

	initialized := true
	needsInitialLoad := false
	if matches == nil {
		res := redirectx.NotFound()
		exceptions[rootBoundaryID(top)] = res.Value
	} else {
		for _, m := range matches {
			if !m.Route.HasLoader() {
				continue
			}
			_, hasData := loaderData[m.Route.Id]
			_, hasErr := exceptions[m.Route.Id]
			if !hasData && !hasErr {
				needsInitialLoad = true
			}
		}
	}
	if needsInitialLoad {
		initialized = false
		r.log.Warn("navrouter: partial hydration data, performing initial load")
	}

	snap := state.Snapshot{
		HistoryAction: opts.History.Action(),
		Location:      initial,
		Matches:       matches,
		Initialized:   initialized,
		Transition:    state.IdleTransition,
		LoaderData:    loaderData,
		ActionData:    actionData,
		Exceptions:    exceptions,
		Fetchers:      map[string]state.Fetcher{},
	}

	r.st = store.New(snap, opts.History, opts.Basename)

	opts.History.Listen(func(a loc.HistoryAction, l loc.Location) {
		// Push/Replace notifications are the router's own doing (every
		// commit already drives history itself); only an externally
		// originated POP (browser back/forward) needs replaying here.
		if a != loc.ActionPop {
			return
		}
		r.handlePop(a, l)
	})

	if needsInitialLoad {
		go r.runInitialLoad(matches)
	}

	return r, nil
}

// State returns the current, read-only snapshot.
func (r *Router) State() state.Snapshot { return r.st.Get().Clone() }

// Subscribe registers fn to run synchronously after every committed
// change.
func (r *Router) Subscribe(fn func(state.Snapshot)) func() {
	return r.st.Subscribe(func(s state.Snapshot) { fn(s.Clone()) })
}

// CreateHref delegates to history with basename applied.
func (r *Router) CreateHref(l loc.Location) string { return r.st.CreateHref(l) }

// GetFetcher returns key's fetcher, or state.IdleFetcher.
func (r *Router) GetFetcher(key string) state.Fetcher { return r.fetchers.Get(key) }

// DeleteFetcher removes key's fetcher and aborts its controller, if any.
func (r *Router) DeleteFetcher(key string) {
	r.fetchers.Delete(key)
	r.publishFetchers()
}

// DebugFetchers exposes per-key controller liveness for tests.
func (r *Router) DebugFetchers() map[string]bool { return r.fetchers.DebugControllers() }

func (r *Router) publishFetchers() {
	snap := r.st.Get()
	snap.Fetchers = r.fetchers.Snapshot()
	r.st.Commit(snap)
}

func rootBoundaryID(top []*route.Route) string {
	if len(top) == 0 {
		return ""
	}
	return top[0].Id
}

func copyIface(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// argsFor builds the loader/action request args for m against dest. The
// URL carries search but never hash, per §4.4: a hash fragment is a
// client-side-only scroll target, never part of a loader/action request.
func (r *Router) argsFor(m match.Match, formMethod, formEncType string, formData map[string][]string, dest loc.Location) route.Args {
	withoutHash := dest
	withoutHash.Hash = ""
	return route.Args{
		Params:      m.Params,
		URL:         withoutHash.Path(),
		FormMethod:  formMethod,
		FormEncType: formEncType,
		FormData:    formData,
	}
}

// setLastActionPath records the pathname+search a submission landed
// against, so a later navigation elsewhere knows to clear actionData.
func (r *Router) setLastActionPath(dest loc.Location) {
	r.mu.Lock()
	r.lastActionPath = dest.Pathname + dest.Search
	r.mu.Unlock()
}

// actionDataStale reports whether dest differs from the last recorded
// submission location, meaning any carried-over actionData no longer
// belongs to the page being committed.
func (r *Router) actionDataStale(dest loc.Location) bool {
	r.mu.Lock()
	last := r.lastActionPath
	r.mu.Unlock()
	return last != "" && last != dest.Pathname+dest.Search
}

// clearLastActionPath forgets the recorded submission location once its
// actionData has been cleared.
func (r *Router) clearLastActionPath() {
	r.mu.Lock()
	r.lastActionPath = ""
	r.mu.Unlock()
}

// runInitialLoad performs the hydration-gap initial load, using a
// dedicated controller since no navigation is otherwise in flight.
func (r *Router) runInitialLoad(matches []match.Match) {
	ctrl := r.navSlot.Start(context.Background())
	calls := engine.BuildCalls(matchedRoutes(matches), func(rt *route.Route) route.Args {
		var m match.Match
		for _, mm := range matches {
			if mm.Route.Id == rt.Id {
				m = mm
			}
		}
		return r.argsFor(m, "", "", nil, r.st.Get().Location)
	})
	results := engine.RunLoaders(ctrl, calls)
	if !r.navSlot.Owns(ctrl) {
		return
	}

	snap := r.st.Get()
	loaderData := copyIface(snap.LoaderData)
	exceptions := copyIface(snap.Exceptions)
	for _, res := range results {
		switch res.Kind {
		case state.ResultData:
			loaderData[res.RouteID] = res.Value
			delete(exceptions, res.RouteID)
		case state.ResultException:
			b := boundaryFor(matches, res.RouteID)
			exceptions[b] = res.Value
			delete(loaderData, b)
		case state.ResultRedirect:
			// A redirect during initial hydration lands a fresh
			// navigation; loaderData for this cycle is dropped.
			go func(to string) { <-r.Navigate(to, NavigateOptions{Replace: true}) }(res.RedirectTo)
			return
		}
	}

	snap.LoaderData = loaderData
	snap.Exceptions = exceptions
	snap.Initialized = true
	r.st.Commit(snap)
}

func matchedRoutes(matches []match.Match) []*route.Route {
	out := make([]*route.Route, len(matches))
	for i, m := range matches {
		out[i] = m.Route
	}
	return out
}

func boundaryFor(matches []match.Match, routeID string) string {
	for _, m := range matches {
		if m.Route.Id == routeID {
			return redirectx.Boundary(m.Route).Id
		}
	}
	return routeID
}
