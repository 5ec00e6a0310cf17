package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/you/sessionkit/domain"
	"github.com/you/sessionkit/internal/oauth"
	"github.com/you/sessionkit/internal/session"
)

// RedirectSignIn is the slice of the identity provider the handlers need to
// start a sign-in and hand its callback to the resolver.
type RedirectSignIn interface {
	BeginSignIn() string
	CaptureCallback(q url.Values)
}

// SessionHandlers exposes the session lifecycle over the agent's local HTTP
// surface.
type SessionHandlers struct {
	sessions  *session.Controller
	resolver  *oauth.Resolver
	provider  RedirectSignIn
	loginPath string
}

// NewSessionHandlers creates the agent's HTTP handlers.
func NewSessionHandlers(sessions *session.Controller, resolver *oauth.Resolver, provider RedirectSignIn, loginPath string) *SessionHandlers {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &SessionHandlers{sessions: sessions, resolver: resolver, provider: provider, loginPath: loginPath}
}

// LoginRequest represents a credential login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest represents a registration request
type SignupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

// UserPatchRequest represents a partial user update
type UserPatchRequest struct {
	Email         *string `json:"email"`
	Name          *string `json:"name"`
	AvatarURL     *string `json:"avatar_url"`
	EmailVerified *bool   `json:"email_verified"`
}

// Snapshot returns the current session state.
func (h *SessionHandlers) Snapshot(c *gin.Context) {
	snap := h.sessions.Snapshot()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"state":            snap.State.String(),
		"loading":          snap.Loading(),
		"is_authenticated": snap.Authenticated(),
		"user":             snap.User,
		"error":            snap.Err,
	}})
}

// Login handles credential login.
func (h *SessionHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := h.sessions.Login(c.Request.Context(), domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	snap := h.sessions.Snapshot()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user":     snap.User,
		"redirect": target,
	}})
}

// Signup handles registration.
func (h *SessionHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := h.sessions.Signup(c.Request.Context(), domain.SignupRequest{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	snap := h.sessions.Snapshot()
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"user":     snap.User,
		"redirect": target,
	}})
}

// Logout flips the session to anonymous synchronously.
func (h *SessionHandlers) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out successfully"}})
}

// UpdateUser merges a partial update into the signed-in user.
func (h *SessionHandlers) UpdateUser(c *gin.Context) {
	var req UserPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.sessions.UpdateUser(c.Request.Context(), domain.UserPatch{
		Email:         req.Email,
		Name:          req.Name,
		AvatarURL:     req.AvatarURL,
		EmailVerified: req.EmailVerified,
	})
	if err != nil {
		if errors.Is(err, domain.ErrVerificationFailed) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authenticated session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.UserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user": updated}})
}

// LoginView is the minimal login landing the guard redirects to. It surfaces
// the pending error message and the preserved destination.
func (h *SessionHandlers) LoginView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"message":  "Please log in",
		"error":    c.Query("error"),
		"redirect": c.Query("redirect"),
		"oauth":    "/oauth/start",
	}})
}

// OAuthStart redirects the browser to the provider's consent screen.
func (h *SessionHandlers) OAuthStart(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, h.provider.BeginSignIn())
}

// OAuthCallback receives the provider redirect and drives the resolver. The
// browser always leaves with a clean URL: success navigates to the resolved
// target, failure back to the login view with a message.
func (h *SessionHandlers) OAuthCallback(c *gin.Context) {
	h.provider.CaptureCallback(c.Request.URL.Query())

	res := h.resolver.Resolve(c.Request.Context(), c.Request.URL)
	switch res.Outcome {
	case oauth.OutcomeCompleted:
		c.Redirect(http.StatusSeeOther, res.Target)
	case oauth.OutcomeFailed:
		c.Redirect(http.StatusSeeOther, h.loginPath+"?error="+url.QueryEscape(res.Message))
	default:
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// Home is the public landing page.
func (h *SessionHandlers) Home(c *gin.Context) {
	snap := h.sessions.Snapshot()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"message": "Scantyx session agent",
		"state":   snap.State.String(),
	}})
}

// AdminDashboard is a guarded admin-area page.
func (h *SessionHandlers) AdminDashboard(c *gin.Context) {
	snap := h.sessions.Snapshot()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"message": "Admin dashboard",
		"user":    snap.User,
	}})
}

// UserTickets is a guarded user-area page.
func (h *SessionHandlers) UserTickets(c *gin.Context) {
	snap := h.sessions.Snapshot()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"message": "Your tickets",
		"user":    snap.User,
	}})
}

// writeAuthError maps controller errors onto HTTP statuses, always carrying
// the single user-facing message.
func (h *SessionHandlers) writeAuthError(c *gin.Context, err error) {
	msg := domain.UserMessage(err)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": msg})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msg})
	case errors.Is(err, domain.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": msg})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
