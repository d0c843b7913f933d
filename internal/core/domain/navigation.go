package domain

// LoginPath is the unguarded entry point every denial falls back to.
const LoginPath = "/auth/login"

// FallbackDashboardPath is the dashboard for an unknown role. Its handler
// redirects to the login entry point.
const FallbackDashboardPath = "/dashboard"

// dashboardPaths is the fixed role → canonical dashboard table.
var dashboardPaths = map[Role]string{
	RoleAdmin:   "/admin/dashboard",
	RoleDoctor:  "/doctor/dashboard",
	RolePatient: "/patient/dashboard",
}

// DashboardPath returns the canonical dashboard path for a role, or the
// fallback path when the role is unknown.
func DashboardPath(role Role) string {
	if p, ok := dashboardPaths[role]; ok {
		return p
	}
	return FallbackDashboardPath
}

// NavigationRequest describes one attempted route change. Produced by the
// routing layer for every navigation to a protected destination; never
// persisted.
type NavigationRequest struct {
	TargetPath   string
	RequiredRole Role // empty means any authenticated user
}

// AuthorizationDecision is the route guard's verdict for a single
// NavigationRequest. Consumed once; the routing layer performs the redirect.
type AuthorizationDecision struct {
	Allowed    bool
	RedirectTo string // empty when Allowed, or when a redirect was suppressed
}

// Allow is the decision that lets the navigation proceed.
func Allow() AuthorizationDecision {
	return AuthorizationDecision{Allowed: true}
}

// Deny blocks the navigation and points the routing layer at redirectTo.
func Deny(redirectTo string) AuthorizationDecision {
	return AuthorizationDecision{Allowed: false, RedirectTo: redirectTo}
}
