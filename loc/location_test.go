package loc_test

import (
	"testing"

	"github.com/wayfarer-dev/navrouter/loc"
)

func TestParseSplitsPathnameSearchHash(t *testing.T) {
	l := loc.Parse("/foo?q=1#frag")
	if l.Pathname != "/foo" || l.Search != "?q=1" || l.Hash != "#frag" {
		t.Errorf("unexpected parse result: %+v", l)
	}
}

func TestParsePathnameOnly(t *testing.T) {
	l := loc.Parse("/foo")
	if l.Pathname != "/foo" || l.Search != "" || l.Hash != "" {
		t.Errorf("unexpected parse result: %+v", l)
	}
}

func TestPathConcatenatesComponents(t *testing.T) {
	l := loc.Location{Pathname: "/foo", Search: "?q=1", Hash: "#h"}
	if got := l.Path(); got != "/foo?q=1#h" {
		t.Errorf("expected /foo?q=1#h, got %q", got)
	}
}

func TestWithKeyGeneratesWhenEmpty(t *testing.T) {
	l := loc.Location{}.WithKey("")
	if l.Key == "" {
		t.Error("expected a generated key")
	}
}

func TestWithKeyPreservesExplicitValue(t *testing.T) {
	l := loc.Location{}.WithKey("fixed")
	if l.Key != "fixed" {
		t.Errorf("expected key fixed, got %q", l.Key)
	}
}

func TestNewKeyIsUniquePerCall(t *testing.T) {
	if loc.NewKey() == loc.NewKey() {
		t.Error("expected distinct keys across calls")
	}
}
