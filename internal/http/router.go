package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/you/sessionkit/internal/http/handlers"
	"github.com/you/sessionkit/internal/http/middleware"
)

// BuildRouter wires the agent's local HTTP surface: the session endpoints,
// the OAuth redirect callback, the login landing, and the guarded admin and
// user areas.
func BuildRouter(sh *handlers.SessionHandlers, mw *middleware.RouteGuardMW) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	r.GET("/", mw.Protect(true), sh.Home)
	r.GET("/login", mw.Protect(true), sh.LoginView)

	s := r.Group("/session")
	s.GET("", sh.Snapshot)
	s.POST("/login", sh.Login)
	s.POST("/signup", sh.Signup)
	s.POST("/logout", sh.Logout)
	s.PATCH("/user", sh.UpdateUser)

	r.GET("/oauth/start", sh.OAuthStart)
	r.GET("/oauth/callback", sh.OAuthCallback)

	adm := r.Group("/admin").Use(mw.Protect(false))
	adm.GET("/dashboard", sh.AdminDashboard)

	usr := r.Group("/user").Use(mw.Protect(false))
	usr.GET("/tickets", sh.UserTickets)

	return r
}
