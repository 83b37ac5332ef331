package handler

import (
	"net/url"
	"strings"
)

// Route names. Redirects are always built from these through the router.
const (
	RouteLogin      = "auth-login"
	RouteRoot       = "root"
	RouteDashboard  = "dashboard"
	RouteCategories = "dashboard-categories"
	RouteProducts   = "dashboard-product"
	RouteCart       = "dashboard-cart"
	RouteNotFound   = "not-found"
)

// Meta gates a route on session state.
type Meta struct {
	RequiresAuth bool
	GuestOnly    bool
}

// routeMeta holds the flags of every view. Action routes are named
// "<view>.<action>" and inherit the flags of their view.
var routeMeta = map[string]Meta{
	RouteLogin:      {GuestOnly: true},
	RouteRoot:       {RequiresAuth: true},
	RouteDashboard:  {RequiresAuth: true},
	RouteCategories: {RequiresAuth: true},
	RouteProducts:   {RequiresAuth: true},
	RouteCart:       {RequiresAuth: true},
	RouteNotFound:   {},
}

// MetaFor returns the flags of the named route. Unknown names are open.
func MetaFor(name string) Meta {
	view, _, _ := strings.Cut(name, ".")
	return routeMeta[view]
}

// Decision is the outcome of Guard. Target is empty when navigation is
// allowed; otherwise it names the route to redirect to and Query carries
// the parameters for that redirect.
type Decision struct {
	Target string
	Query  url.Values
}

func (d Decision) Allowed() bool { return d.Target == "" }

// Guard decides whether a navigation to a route with meta may proceed.
// fullPath is the originally requested path and is handed to the login
// view as the redirect parameter.
func Guard(meta Meta, authenticated bool, fullPath string) Decision {
	if meta.RequiresAuth && !authenticated {
		return Decision{Target: RouteLogin, Query: url.Values{"redirect": {fullPath}}}
	}
	if meta.GuestOnly && authenticated {
		return Decision{Target: RouteDashboard}
	}
	return Decision{}
}
