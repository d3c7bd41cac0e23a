// Package redirectx implements the Redirect/Exception Router: it
// normalizes "thrown vs returned" loader/action outcomes into a single
// tagged state.Result, locates the nearest exception boundary, and
// synthesizes the 404/405 responses for not-found locations and
// method-not-allowed submissions.
//
// Grounded on skipper's sentinel-error-plus-errors.Is pattern
// (routing/errors_test.go: errUnknownFilter, errInvalidMatcher, ...) for
// the synthesized exceptions, and on circuit.Breaker's small, explicit
// state classification (BreakerType enum + a pure decision function) for
// the shape of Normalize.
package redirectx

import (
	"errors"

	"github.com/wayfarer-dev/navrouter/route"
	"github.com/wayfarer-dev/navrouter/state"
)

// ErrLocationNotFound and ErrMethodNotAllowed are sentinel errors naming the
// 404/405 conditions. The exceptions NotFound and MethodNotAllowed
// synthesize are *state.Response values and do not wrap these errors.
var (
	ErrLocationNotFound = errors.New("navrouter: location not found")
	ErrMethodNotAllowed = errors.New("navrouter: method not allowed")
)

// Redirect is returned (or wrapped and returned as an error) by a loader
// or action to signal a redirect, modeling the "may be thrown or
// returned; both are equivalent" duality without requiring Go code to
// panic in order to "throw".
type Redirect struct {
	Response *state.Response
}

func (r *Redirect) Error() string { return "navrouter: redirect to " + r.Response.Header("Location") }

// NewRedirect constructs a throwable/returnable redirect error.
func NewRedirect(status int, location string) *Redirect {
	return &Redirect{Response: state.NewRedirect(status, location)}
}

// Exception wraps an arbitrary thrown value, letting loader/action code
// "throw" a value of any shape via the error return.
type Exception struct {
	Value interface{}
}

func (e *Exception) Error() string { return "navrouter: exception" }

// NewException wraps an arbitrary value as a thrown exception.
func NewException(v interface{}) *Exception { return &Exception{Value: v} }

// Normalize turns a loader/action's (value, err) return into a single
// tagged state.Result, collapsing the thrown/returned duality.
func Normalize(routeID string, value interface{}, err error) state.Result {
	if err != nil {
		var rd *Redirect
		if errors.As(err, &rd) {
			return state.Result{
				Kind:          state.ResultRedirect,
				RouteID:       routeID,
				RedirectTo:    rd.Response.Header("Location"),
				Status:        rd.Response.Status,
				RevalidateAll: rd.Response.Header("X-Remix-Revalidate") == "yes",
			}
		}

		var ex *Exception
		if errors.As(err, &ex) {
			return state.Result{Kind: state.ResultException, RouteID: routeID, Value: ex.Value}
		}

		return state.Result{Kind: state.ResultException, RouteID: routeID, Value: err}
	}

	if resp, ok := state.IsRedirectValue(value); ok {
		return state.Result{
			Kind:          state.ResultRedirect,
			RouteID:       routeID,
			RedirectTo:    resp.Header("Location"),
			Status:        resp.Status,
			RevalidateAll: resp.Header("X-Remix-Revalidate") == "yes",
		}
	}

	if resp, ok := state.IsErrorResponseValue(value); ok {
		return state.Result{Kind: state.ResultException, RouteID: routeID, Value: resp}
	}

	return state.Result{Kind: state.ResultData, RouteID: routeID, Value: value}
}

// Boundary returns the nearest ancestor (inclusive) of r declaring an
// exception boundary, or the tree root if none does.
func Boundary(r *route.Route) *route.Route {
	return r.Boundary()
}

// NotFound synthesizes the root-level 404 exception for an unmatched
// location.
func NotFound() state.Result {
	return state.Result{
		Kind:    state.ResultException,
		RouteID: "",
		Value:   &state.Response{Status: 404},
	}
}

// MethodNotAllowed synthesizes the leaf-routed 405 exception for a
// submission to a route with no action.
func MethodNotAllowed(leafRouteID string) state.Result {
	return state.Result{
		Kind:    state.ResultException,
		RouteID: leafRouteID,
		Value:   &state.Response{Status: 405},
	}
}
