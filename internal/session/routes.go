package session

import (
	"strings"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

const (
	RouteRoot           = "/"
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteAdminDashboard = "/admin-dashboard"
	RouteUserDashboard  = "/user-dashboard"
)

// LandingRoute is where a freshly logged-in role is sent.
func LandingRoute(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return RouteAdminDashboard
	case domain.RoleUser:
		return RouteUserDashboard
	default:
		return RouteLogin
	}
}

// RouteDecision is the outcome of guarding a navigation target.
type RouteDecision struct {
	Path     string `json:"path"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
	NotFound bool   `json:"not_found,omitempty"`
}

var protectedRoutes = map[string]domain.Role{
	RouteAdminDashboard: domain.RoleAdmin,
	RouteUserDashboard:  domain.RoleUser,
}

// ResolveRoute decides whether the holder of current may open path. Guarded
// dashboards redirect to login when the session is missing or the role does
// not match; "/" always redirects to login; unknown paths are not found.
func ResolveRoute(path string, current *domain.Session) RouteDecision {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	switch path {
	case RouteRoot:
		return RouteDecision{Path: path, Redirect: RouteLogin}
	case RouteLogin, RouteSignup:
		return RouteDecision{Path: path, Allowed: true}
	}

	required, guarded := protectedRoutes[path]
	if !guarded {
		return RouteDecision{Path: path, NotFound: true}
	}
	if !current.Valid() {
		return RouteDecision{Path: path, Redirect: RouteLogin}
	}
	role, _ := domain.ParseRole(string(current.Role))
	if role != required {
		return RouteDecision{Path: path, Redirect: RouteLogin}
	}
	return RouteDecision{Path: path, Allowed: true}
}

// ResolveRoute guards path against the store's current session.
func (s *Store) ResolveRoute(path string) RouteDecision {
	current, ok := s.Current()
	if !ok {
		return ResolveRoute(path, nil)
	}
	return ResolveRoute(path, &current)
}
