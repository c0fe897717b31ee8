// Package guard decides whether a session may open a navigation route and
// enforces that decision on HTTP handlers.
package guard

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"dumptrack-api/pkg/apierror"
	"dumptrack-api/pkg/response"
)

// Decision is the outcome of a navigation check. RedirectTo names the
// route to go to when Allow is false.
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

var allow = Decision{Allow: true}

// Decide applies the navigation rules:
//
//   - unauthenticated, on an elevated route or the sign-up route: go to login
//   - unauthenticated otherwise: allow
//   - authenticated, on an elevated route without administrator rights: go
//     to the dashboard
//   - authenticated otherwise: allow
func Decide(authenticated bool, route Route, isAdmin bool) Decision {
	if !authenticated {
		if route.Elevated || route.Name == RouteSignUp {
			return Decision{RedirectTo: RouteLogin}
		}
		return allow
	}
	if route.Elevated && !isAdmin {
		return Decision{RedirectTo: RouteDashboard}
	}
	return allow
}

// Session is the view of the session store the guard needs.
type Session interface {
	IsAuthenticated() bool
	IsAdministrator() bool
	Refresh(ctx context.Context) error
}

// SessionFunc returns the session of a request, or nil when it has none.
type SessionFunc func(r *http.Request) Session

// Guard enforces route decisions on HTTP handlers.
type Guard struct {
	session SessionFunc
	logger  *zap.Logger
}

// New creates a guard resolving sessions with session.
func New(session SessionFunc, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{session: session, logger: logger}
}

// Evaluate returns the decision function for the session of r. An
// authenticated session is refreshed once first, so an expired session is
// treated as signed out. A failed refresh falls back to the cached state.
func (g *Guard) Evaluate(r *http.Request) func(Route) Decision {
	s := g.session(r)
	if s == nil || !s.IsAuthenticated() {
		return func(route Route) Decision { return Decide(false, route, false) }
	}
	if err := s.Refresh(r.Context()); err != nil {
		g.logger.Warn("session refresh failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	authenticated, admin := s.IsAuthenticated(), s.IsAdministrator()
	return func(route Route) Decision { return Decide(authenticated, route, admin) }
}

// Check decides route for the session of r.
func (g *Guard) Check(r *http.Request, route Route) Decision {
	return g.Evaluate(r)(route)
}

// Navigation guards a navigation route, answering a refused request with
// a 302 to the target route.
func (g *Guard) Navigation(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Check(r, route)
			if d.Allow {
				next.ServeHTTP(w, r)
				return
			}
			target, ok := Lookup(d.RedirectTo)
			if !ok {
				response.Error(w, apierror.InternalError(""))
				return
			}
			g.logger.Debug("navigation redirected",
				zap.String("route", route.Name), zap.String("redirect", target.Name))
			http.Redirect(w, r, target.Path, http.StatusFound)
		})
	}
}

// RequireAuth rejects requests without a signed-in session with 401.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := g.session(r)
		if s == nil || !s.IsAuthenticated() {
			response.Error(w, apierror.Unauthorized(""))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without a signed-in session with 401 and
// non-administrators with 403. The session is refreshed before the role
// check.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := g.session(r)
		if s == nil || !s.IsAuthenticated() {
			response.Error(w, apierror.Unauthorized(""))
			return
		}
		if err := s.Refresh(r.Context()); err != nil {
			g.logger.Warn("session refresh failed", zap.Error(err))
		}
		switch {
		case !s.IsAuthenticated():
			response.Error(w, apierror.Unauthorized(""))
		case !s.IsAdministrator():
			response.Error(w, apierror.Forbidden("Administrator access required"))
		default:
			next.ServeHTTP(w, r)
		}
	})
}
