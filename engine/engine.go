// Package engine implements the Execution Engine: a single AbortController
// per top-level navigation (or per fetcher key), running actions then
// loader batches under that shared, cancellable signal, and discarding
// results from superseded cycles.
//
// Grounded on golang.org/x/sync/errgroup (adopted in
// filters/openpolicyagent for bounded concurrent work under a shared
// context) for running a loader batch concurrently, and on
// circuit.Registry's "synced via a buffered channel" mutual-exclusion
// trick for Engine's single current-controller slot.
package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wayfarer-dev/navrouter/route"
	"github.com/wayfarer-dev/navrouter/state"
)

// Controller owns one cycle's (navigation's or fetcher's) cancellation
// signal. Starting a new cycle on the same owner aborts the previous one.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newController(parent context.Context) *Controller {
	ctx, cancel := context.WithCancel(parent)
	return &Controller{ctx: ctx, cancel: cancel}
}

// Abort cancels the controller's signal. Safe to call more than once.
func (c *Controller) Abort() { c.cancel() }

// Aborted reports whether Abort has been called.
func (c *Controller) Aborted() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Signal exposes the cancellation channel handed to user loader/action
// code as Args.Signal.
func (c *Controller) Signal() <-chan struct{} { return c.ctx.Done() }

// Context returns the controller's context, for internal engine use
// (e.g. as the parent of an errgroup).
func (c *Controller) Context() context.Context { return c.ctx }

// Slot owns a single current *Controller, aborting the previous occupant
// whenever a new one starts. One Slot models one navigation owner or one
// fetcher key.
type Slot struct {
	mu      chan struct{}
	current *Controller
}

// NewSlot creates an empty, ready-to-use Slot.
func NewSlot() *Slot {
	s := &Slot{mu: make(chan struct{}, 1)}
	s.mu <- struct{}{}
	return s
}

func (s *Slot) synced(f func()) {
	<-s.mu
	f()
	s.mu <- struct{}{}
}

// Start aborts any controller currently occupying the slot and installs a
// fresh one, returning it.
func (s *Slot) Start(parent context.Context) *Controller {
	var c *Controller
	s.synced(func() {
		if s.current != nil {
			s.current.Abort()
		}
		c = newController(parent)
		s.current = c
	})
	return c
}

// Abort aborts whatever controller currently occupies the slot, if any.
func (s *Slot) Abort() {
	s.synced(func() {
		if s.current != nil {
			s.current.Abort()
		}
	})
}

// Current returns the slot's current controller, or nil.
func (s *Slot) Current() *Controller {
	var c *Controller
	s.synced(func() { c = s.current })
	return c
}

// Owns reports whether ctrl is still the slot's current (unsuperseded)
// controller — used to discard stale results.
func (s *Slot) Owns(ctrl *Controller) bool {
	var ok bool
	s.synced(func() { ok = s.current == ctrl })
	return ok
}

// LoaderCall pairs a route id with the function to run for it.
type LoaderCall struct {
	RouteID string
	Run     func(ctx context.Context, signal <-chan struct{}) (interface{}, error)
}

// RunAction runs a single action call under ctrl's signal.
func RunAction(ctrl *Controller, routeID string, run func(ctx context.Context, signal <-chan struct{}) (interface{}, error)) state.Result {
	v, err := run(ctrl.Context(), ctrl.Signal())
	return normalizeCaller(routeID, v, err, ctrl)
}

// RunLoaders runs every call in calls concurrently, sharing ctrl's signal,
// via an errgroup so loaders are independent of one another until the
// Redirect/Exception Router reduces their combined results. Order of the
// returned slice matches the order of calls.
func RunLoaders(ctrl *Controller, calls []LoaderCall) []state.Result {
	results := make([]state.Result, len(calls))
	if len(calls) == 0 {
		return results
	}

	grp, _ := errgroup.WithContext(context.Background())
	for i, call := range calls {
		i, call := i, call
		grp.Go(func() error {
			v, err := call.Run(ctrl.Context(), ctrl.Signal())
			results[i] = normalizeCaller(call.RouteID, v, err, ctrl)
			return nil
		})
	}
	_ = grp.Wait()

	return results
}

func normalizeCaller(routeID string, v interface{}, err error, ctrl *Controller) state.Result {
	r := normalize(routeID, v, err)
	r.Aborted = ctrl.Aborted()
	return r
}

// normalize is a thin indirection so engine does not import redirectx
// directly (keeping engine free of redirectx keeps it independently
// testable/reusable, e.g. for a future worker pool that has nothing to do
// with redirects).
var normalize = func(routeID string, v interface{}, err error) state.Result {
	if err != nil {
		return state.Result{Kind: state.ResultException, RouteID: routeID, Value: err}
	}
	if resp, ok := state.IsRedirectValue(v); ok {
		return state.Result{Kind: state.ResultRedirect, RouteID: routeID, RedirectTo: resp.Header("Location"), Status: resp.Status, RevalidateAll: resp.Header("X-Remix-Revalidate") == "yes"}
	}
	if resp, ok := state.IsErrorResponseValue(v); ok {
		return state.Result{Kind: state.ResultException, RouteID: routeID, Value: resp}
	}
	return state.Result{Kind: state.ResultData, RouteID: routeID, Value: v}
}

// SetNormalizer lets the router package install redirectx.Normalize
// (which also understands thrown *redirectx.Redirect/*redirectx.Exception
// values) without engine importing redirectx.
func SetNormalizer(fn func(routeID string, v interface{}, err error) state.Result) {
	normalize = fn
}

// BuildCalls adapts route.Route loaders into engine.LoaderCall values,
// threading through the route.Args each loader expects.
func BuildCalls(routes []*route.Route, argsFor func(r *route.Route) route.Args) []LoaderCall {
	calls := make([]LoaderCall, 0, len(routes))
	for _, r := range routes {
		if !r.HasLoader() {
			continue
		}
		r := r
		calls = append(calls, LoaderCall{
			RouteID: r.Id,
			Run: func(ctx context.Context, signal <-chan struct{}) (interface{}, error) {
				args := argsFor(r)
				args.Signal = signal
				return r.Loader(args)
			},
		})
	}
	return calls
}
