package route_test

import (
	"errors"
	"testing"

	"github.com/wayfarer-dev/navrouter/route"
)

func TestNormalizeAssignsPositionalIDs(t *testing.T) {
	defs := []*route.Def{
		{
			Path: "/",
			Children: []*route.Def{
				{Index: true},
				{Path: "foo"},
			},
		},
	}

	top, byID, err := route.Normalize(defs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(top) != 1 || top[0].Id != "0" {
		t.Fatalf("expected root id %q, got %+v", "0", top)
	}
	if _, ok := byID["0-0"]; !ok {
		t.Errorf("expected index child assigned id 0-0, byID=%v", byID)
	}
	if _, ok := byID["0-1"]; !ok {
		t.Errorf("expected foo child assigned id 0-1, byID=%v", byID)
	}
}

func TestNormalizeKeepsExplicitIDs(t *testing.T) {
	defs := []*route.Def{{ID: "root", Path: "/", Children: []*route.Def{{ID: "foo", Path: "foo"}}}}
	_, byID, err := route.Normalize(defs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if byID["root"] == nil || byID["foo"] == nil {
		t.Fatalf("expected explicit ids preserved, got %v", byID)
	}
	if byID["foo"].Parent != byID["root"] {
		t.Error("expected foo's parent to be root")
	}
}

func TestNormalizeRejectsEmptyTree(t *testing.T) {
	_, _, err := route.Normalize(nil)
	if !errors.Is(err, route.ErrInvalidRoutes) {
		t.Fatalf("expected ErrInvalidRoutes, got %v", err)
	}
}

func TestNormalizeRejectsDuplicateIDs(t *testing.T) {
	defs := []*route.Def{{ID: "dup", Path: "/"}, {ID: "dup", Path: "/other"}}
	_, _, err := route.Normalize(defs)
	if !errors.Is(err, route.ErrInvalidRoutes) {
		t.Fatalf("expected ErrInvalidRoutes for duplicate id, got %v", err)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	def := &route.Def{Path: "/"}
	defs := []*route.Def{def}
	if _, _, err := route.Normalize(defs); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if def.ID != "" {
		t.Errorf("expected caller's Def.ID left untouched, got %q", def.ID)
	}
}

func TestBoundaryFindsNearestAncestorOrSelf(t *testing.T) {
	defs := []*route.Def{
		{
			ID:   "parent",
			Path: "/",
			Children: []*route.Def{
				{ID: "child", Path: "child", ExceptionBoundary: true, Children: []*route.Def{
					{ID: "grandchild", Path: "grand"},
				}},
			},
		},
	}
	top, byID, err := route.Normalize(defs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if b := byID["grandchild"].Boundary(); b.Id != "child" {
		t.Errorf("expected grandchild's boundary to be child, got %s", b.Id)
	}
	if b := byID["parent"].Boundary(); b.Id != "parent" {
		t.Errorf("expected root fallback boundary to be parent, got %s", b.Id)
	}
	if len(top) != 1 {
		t.Fatalf("expected single top-level route, got %d", len(top))
	}
}

func TestFlattenIsRootFirstDepthFirst(t *testing.T) {
	defs := []*route.Def{
		{ID: "a", Path: "/", Children: []*route.Def{
			{ID: "b", Path: "b"},
			{ID: "c", Path: "c"},
		}},
	}
	top, _, err := route.Normalize(defs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	flat := route.Flatten(top)
	var ids []string
	for _, r := range flat {
		ids = append(ids, r.Id)
	}
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("got %v, want %v", ids, want)
			break
		}
	}
}

func TestHasLoaderHasAction(t *testing.T) {
	loader := func(route.Args) (interface{}, error) { return nil, nil }
	defs := []*route.Def{{ID: "r", Path: "/", Loader: loader}}
	_, byID, err := route.Normalize(defs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !byID["r"].HasLoader() {
		t.Error("expected HasLoader true")
	}
	if byID["r"].HasAction() {
		t.Error("expected HasAction false")
	}
}
