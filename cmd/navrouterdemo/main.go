/*
navrouterdemo drives a small navrouter.Router against an in-memory history
to print each committed snapshot to stdout. It exercises a GET navigation
and a POST submission with an action reload, to demonstrate the state
machine without a browser or server.
*/
package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	navrouter "github.com/wayfarer-dev/navrouter"
	"github.com/wayfarer-dev/navrouter/loc/memhistory"
	"github.com/wayfarer-dev/navrouter/route"
	"github.com/wayfarer-dev/navrouter/state"
)

func main() {
	routes := []*route.Def{
		{
			ID:   "root",
			Path: "/",
			Loader: func(route.Args) (interface{}, error) {
				return "root data", nil
			},
			Children: []*route.Def{
				{
					ID:    "index",
					Index: true,
					Loader: func(route.Args) (interface{}, error) {
						return "index data", nil
					},
				},
				{
					ID:   "tasks",
					Path: "tasks",
					Loader: func(route.Args) (interface{}, error) {
						return "tasks data", nil
					},
					Action: func(a route.Args) (interface{}, error) {
						title := ""
						if v := a.FormData["title"]; len(v) > 0 {
							title = v[0]
						}
						return fmt.Sprintf("created task %q", title), nil
					},
				},
			},
		},
	}

	h := memhistory.New("", "/")
	r, err := navrouter.New(navrouter.Options{Routes: routes, History: h})
	if err != nil {
		log.WithError(err).Fatal("navrouterdemo: failed to construct router")
	}

	unsub := r.Subscribe(func(snap state.Snapshot) {
		fmt.Printf("location=%s transition=%s/%s loaderData=%v actionData=%v\n",
			snap.Location.Path(), snap.Transition.State, snap.Transition.Type, snap.LoaderData, snap.ActionData)
	})
	defer unsub()

	<-r.Navigate("/tasks", navrouter.NavigateOptions{})

	<-r.Navigate("/tasks", navrouter.NavigateOptions{
		FormMethod: "POST",
		FormData:   map[string][]string{"title": {"buy milk"}},
	})
}
