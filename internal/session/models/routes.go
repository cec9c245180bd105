package models

import profile "lostfound/internal/profile/models"

// Route identifies a page.
type Route string

const (
	RouteNone          Route = ""
	RouteLanding       Route = "landing"
	RouteSignIn        Route = "sign-in"
	RouteResetPassword Route = "reset-password"
	RouteVerifyEmail   Route = "verify-email"

	RouteItems         Route = "items"
	RouteReportItem    Route = "items/report"
	RouteMyClaims      Route = "claims/mine"
	RouteNotifications Route = "notifications"

	RouteAdminQueue  Route = "admin/queue"
	RouteAdminClaims Route = "admin/claims"
	RouteAdminLookup Route = "admin/lookup"
	RouteAdminAudit  Route = "admin/audit"
)

type routeRule struct {
	persist bool
	role    profile.Role
}

// routes lists every authenticated page. The landing page and the auth flow
// pages are deliberately absent so a refresh never strands a tab on them.
var routes = map[Route]routeRule{
	RouteItems:         {persist: true},
	RouteReportItem:    {persist: true},
	RouteMyClaims:      {persist: true, role: profile.RoleFinder},
	RouteNotifications: {persist: true},
	RouteAdminQueue:    {persist: true, role: profile.RoleAdmin},
	RouteAdminClaims:   {persist: true, role: profile.RoleAdmin},
	RouteAdminLookup:   {persist: true, role: profile.RoleAdmin},
	RouteAdminAudit:    {persist: true, role: profile.RoleAdmin},
}

// Persistable reports whether r may be written to durable storage.
func (r Route) Persistable() bool {
	rule, ok := routes[r]
	return ok && rule.persist
}

// Public reports whether r is reachable without a session.
func (r Route) Public() bool {
	return r == RouteLanding || r == RouteSignIn
}

// AllowedFor reports whether a user with role may open r.
func (r Route) AllowedFor(role profile.Role) bool {
	if r.Public() {
		return true
	}
	rule, ok := routes[r]
	if !ok {
		return false
	}
	return rule.role == "" || rule.role == role
}

// Home is the page a freshly authenticated user lands on.
func Home(role profile.Role) Route {
	if role == profile.RoleAdmin {
		return RouteAdminQueue
	}
	return RouteItems
}
