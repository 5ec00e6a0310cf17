package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/sessionkit/internal/guard"
	"github.com/you/sessionkit/internal/infrastructure/authz"
)

// RouteGuardMW adapts the route guard to the agent's HTTP surface. The
// browser-side notions map as: loading placeholder → 503 with Retry-After,
// history-replacing redirect → 303 See Other.
type RouteGuardMW struct {
	guard    *guard.Guard
	sessions guard.SessionSource
	authz    *authz.CasbinService
}

// NewRouteGuardMW creates the guard middleware. authz may be nil to skip
// role enforcement.
func NewRouteGuardMW(g *guard.Guard, sessions guard.SessionSource, az *authz.CasbinService) *RouteGuardMW {
	return &RouteGuardMW{guard: g, sessions: sessions, authz: az}
}

// Protect gates every request through the route guard. public routes render
// unconditionally.
func (m *RouteGuardMW) Protect(public bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, loginURL := m.guard.Check(c.Request.URL.Path, public)
		switch decision {
		case guard.ShowLoading:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
			c.Abort()
			return
		case guard.Redirect:
			c.Redirect(http.StatusSeeOther, loginURL)
			c.Abort()
			return
		}

		if !public && m.authz != nil {
			role := "user"
			if snap := m.sessions.Snapshot(); snap.User != nil {
				role = snap.User.Role
			}
			if !m.authz.Allowed(role, c.Request.URL.Path, c.Request.Method) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role permissions"})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
