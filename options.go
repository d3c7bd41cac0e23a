package navrouter

import (
	"github.com/sirupsen/logrus"

	"github.com/wayfarer-dev/navrouter/loc"
	"github.com/wayfarer-dev/navrouter/match"
	"github.com/wayfarer-dev/navrouter/route"
)

// HydrationData seeds the initial snapshot so construction can skip the
// router's own initial load, mirroring a server-rendered hydration payload.
type HydrationData struct {
	LoaderData map[string]interface{}
	ActionData map[string]interface{}
	Exceptions map[string]interface{}
}

// Options configures a Router, following routing.Options's doc-comment
// density: every field gets one explanatory line, no more.
type Options struct {

	// Routes is the caller-supplied route tree. Must be non-empty.
	Routes []*route.Def

	// History is the external history adapter the router drives
	// push/replace/go through and listens to for POP navigations.
	History loc.History

	// Basename is prefixed to every href CreateHref produces.
	Basename string

	// Matcher overrides the default longest-static-prefix matcher. Nil
	// selects match.Static{}.
	Matcher match.Matcher

	// HydrationData seeds loaderData/actionData/exceptions so the
	// router can skip its initial load.
	HydrationData *HydrationData

	// Log receives structured diagnostics. Nil selects logrus's
	// package-level standard logger.
	Log *logrus.Logger
}
