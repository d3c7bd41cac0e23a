package fetcher

import (
	"context"
	"reflect"
	"testing"

	"github.com/wayfarer-dev/navrouter/state"
)

func TestGetReturnsIdleFetcherForUnknownKey(t *testing.T) {
	m := New()
	if got := m.Get("nope"); !reflect.DeepEqual(got, state.IdleFetcher) {
		t.Errorf("expected IdleFetcher, got %+v", got)
	}
}

func TestSetAndGetRoundtrip(t *testing.T) {
	m := New()
	f := state.Fetcher{State: state.FetcherLoading, Type: state.FetcherNormalLoad}
	m.Set("k", f)
	if got := m.Get("k"); !reflect.DeepEqual(got, f) {
		t.Errorf("expected %+v, got %+v", f, got)
	}
}

func TestStartAbortsPreviousControllerForSameKey(t *testing.T) {
	m := New()
	first := m.Start(context.Background(), "k")
	second := m.Start(context.Background(), "k")

	if !first.Aborted() {
		t.Error("expected first controller aborted when same key restarts")
	}
	if !m.Owns("k", second) {
		t.Error("expected manager to own the second controller")
	}
	if m.Owns("k", first) {
		t.Error("expected manager to no longer own the first controller")
	}
}

func TestDifferentKeysHaveIndependentControllers(t *testing.T) {
	m := New()
	a := m.Start(context.Background(), "a")
	b := m.Start(context.Background(), "b")

	if a.Aborted() || b.Aborted() {
		t.Error("expected independent keys to not abort one another")
	}
}

func TestDeleteAbortsControllerAndRemovesState(t *testing.T) {
	m := New()
	ctrl := m.Start(context.Background(), "k")
	m.Set("k", state.Fetcher{State: state.FetcherLoading})

	m.Delete("k")

	if !ctrl.Aborted() {
		t.Error("expected Delete to abort the key's controller")
	}
	if got := m.Get("k"); !reflect.DeepEqual(got, state.IdleFetcher) {
		t.Errorf("expected deleted key to read back as idle, got %+v", got)
	}
}

func TestSnapshotReturnsShallowCopy(t *testing.T) {
	m := New()
	m.Set("k", state.Fetcher{State: state.FetcherLoading})

	snap := m.Snapshot()
	snap["k"] = state.Fetcher{State: state.FetcherSubmitting}

	if got := m.Get("k"); got.State != state.FetcherLoading {
		t.Errorf("expected Snapshot mutation to not affect manager state, got %+v", got)
	}
}

func TestDebugControllersReflectsLiveness(t *testing.T) {
	m := New()
	ctrl := m.Start(context.Background(), "k")

	if live := m.DebugControllers(); !live["k"] {
		t.Errorf("expected key k reported live, got %v", live)
	}
	ctrl.Abort()
	if live := m.DebugControllers(); live["k"] {
		t.Errorf("expected key k reported not live after abort, got %v", live)
	}
}
