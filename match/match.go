// Package match wraps the external path-to-route matcher ("Matcher
// Adapter"). Path-to-route matching itself is out of scope for the core
// (it is a pure function consumed through a narrow interface); this
// package defines that interface and, so the module is usable standalone,
// a small reference implementation.
//
// Grounded on routing.Routing.Route, which wraps an external matcher and
// returns a *Route plus extracted params for a request; Matcher here plays
// the same role, generalized to an ordered slice of matches for nested
// layouts.
package match

import (
	"net/url"
	"sort"
	"strings"

	"github.com/wayfarer-dev/navrouter/route"
)

// Match is a route plus its resolved params and URL-relative pathname.
type Match struct {
	Route        *route.Route
	Params       map[string]string
	Pathname     string
	PathnameBase string
}

// Matcher returns an ordered (root→leaf) list of matches for pathname, or
// nil if nothing matches.
type Matcher interface {
	Match(routes []*route.Route, pathname string) []Match
}

// IndexQueryParam is the bare query parameter (value "") that disambiguates
// submissions to an index route from its layout parent.
const IndexQueryParam = "index"

// SubmissionTarget picks which matched route a submission dispatches to.
// When the deepest match is an index route, a bare "?index" query
// parameter targets the index route itself; its absence targets the
// index route's layout parent instead. Non-index leaves are unaffected.
func SubmissionTarget(matches []Match, search string) Match {
	leaf := matches[len(matches)-1]
	if !leaf.Route.Index || hasBareIndexParam(search) {
		return leaf
	}
	if len(matches) >= 2 {
		return matches[len(matches)-2]
	}
	return leaf
}

func hasBareIndexParam(search string) bool {
	q, err := url.ParseQuery(strings.TrimPrefix(search, "?"))
	if err != nil {
		return false
	}
	for _, v := range q[IndexQueryParam] {
		if v == "" {
			return true
		}
	}
	return false
}

// Static is a default Matcher: longest static-prefix match over ":param"
// and "*splat" segments, with index-route support. It is grounded on the
// match-then-return-params contract of routing.Routing.Route, generalized
// from a single route to an ordered chain of nested layouts.
type Static struct{}

type candidate struct {
	chain  []*route.Route
	params []map[string]string
	score  int
}

// Match implements Matcher.
func (Static) Match(routes []*route.Route, pathname string) []Match {
	segments := splitSegments(pathname)

	var candidates []candidate
	var walk func(rs []*route.Route, chain []*route.Route, params []map[string]string, score int, remaining []string)
	walk = func(rs []*route.Route, chain []*route.Route, params []map[string]string, score int, remaining []string) {
		for _, r := range rs {
			if r.Index {
				if len(remaining) == 0 {
					candidates = append(candidates, candidate{
						chain:  append(append([]*route.Route{}, chain...), r),
						params: append(append([]map[string]string{}, params...), map[string]string{}),
						score:  score + 3,
					})
				}
				continue
			}

			segs := splitSegments(r.Path)
			if len(segs) > len(remaining) {
				continue
			}

			p := map[string]string{}
			matched := true
			segScore := 0
			for i, seg := range segs {
				switch {
				case seg == "*" || strings.HasPrefix(seg, "*"):
					name := strings.TrimPrefix(seg, "*")
					if name == "" {
						name = "*"
					}
					p[name] = strings.Join(remaining[i:], "/")
					segScore += 1
					matched = true
					goto matchedSplat
				case strings.HasPrefix(seg, ":"):
					p[seg[1:]] = remaining[i]
					segScore += 2
				case seg == remaining[i]:
					segScore += 3
				default:
					matched = false
				}
				if !matched {
					break
				}
			}
			if !matched {
				continue
			}

		matchedSplat:
			isSplat := len(segs) > 0 && strings.HasPrefix(segs[len(segs)-1], "*")
			rest := remaining[len(segs):]
			if isSplat {
				rest = nil
			}

			newChain := append(append([]*route.Route{}, chain...), r)
			newParams := append(append([]map[string]string{}, params...), p)
			newScore := score + segScore

			if len(rest) == 0 {
				hasIndexChild := false
				for _, c := range r.Children {
					if c.Index {
						hasIndexChild = true
					}
				}
				if len(r.Children) == 0 || !hasIndexChild && !isSplat {
					candidates = append(candidates, candidate{chain: newChain, params: newParams, score: newScore})
				}
				if len(r.Children) > 0 {
					walk(r.Children, newChain, newParams, newScore, rest)
				}
				continue
			}

			if len(r.Children) > 0 {
				walk(r.Children, newChain, newParams, newScore, rest)
			}
		}
	}

	walk(routes, nil, nil, 0, segments)
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	best := candidates[0]

	merged := map[string]string{}
	out := make([]Match, len(best.chain))
	base := ""
	for i, r := range best.chain {
		for k, v := range best.params[i] {
			merged[k] = v
		}
		paramsCopy := make(map[string]string, len(merged))
		for k, v := range merged {
			paramsCopy[k] = v
		}
		base = joinBase(base, r.Path)
		out[i] = Match{Route: r, Params: paramsCopy, Pathname: pathname, PathnameBase: base}
	}
	return out
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func joinBase(base, seg string) string {
	seg = strings.Trim(seg, "/")
	if seg == "" {
		return base
	}
	if base == "" || base == "/" {
		return "/" + seg
	}
	return base + "/" + seg
}
