package domain

import (
	"strings"
	"time"
)

// User represents the application's view of an authenticated principal
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Provider      string `json:"provider,omitempty"`
}

// UserPatch carries a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Email         *string
	Name          *string
	Role          *string
	EmailVerified *bool
	AvatarURL     *string
}

// Apply merges the patch into a copy of u and returns it.
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	return u
}

// AuthResult represents a successful authentication outcome
type AuthResult struct {
	Token string
	User  *User
}

// VerifyResult represents the backend's judgement of a stored token
type VerifyResult struct {
	Valid bool
	User  *User
}

// SessionState enumerates the session controller's states
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateChecking
	StateRefreshing
	StateAuthenticated
	StateAnonymous
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateRefreshing:
		return "refreshing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Loading reports whether an auth determination is still in flight.
func (s SessionState) Loading() bool {
	return s == StateUninitialized || s == StateChecking || s == StateRefreshing
}

// Snapshot is the externally visible session state at a point in time.
// User and Token are owned by the controller; a non-nil User implies the
// token was accepted as valid at some point, the inverse is not guaranteed.
type Snapshot struct {
	State SessionState `json:"state"`
	User  *User        `json:"user"`
	Token string       `json:"-"`
	Err   string       `json:"error,omitempty"`
}

// Authenticated reports whether the session holds a verified user.
func (s Snapshot) Authenticated() bool { return s.State == StateAuthenticated }

// Loading reports whether callers should wait before trusting the snapshot.
func (s Snapshot) Loading() bool { return s.State.Loading() }

// RedirectIntent records where a user was trying to go before being forced
// through login. Consumed at most once.
type RedirectIntent struct {
	FromPath   string
	CapturedAt time.Time
}

// ExternalIdentity is the raw identity shape returned by a third-party
// sign-in provider.
type ExternalIdentity struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	PhotoURL      string
	ProviderID    string
	// IDToken is the provider-issued bearer credential for this identity.
	IDToken string
}

// Normalize converts an external identity into the application user shape.
// The display name falls back to the local part of the email address, and
// the role defaults to "user"; external providers never grant admin.
func (e ExternalIdentity) Normalize() *User {
	name := e.DisplayName
	if name == "" {
		if at := strings.Index(e.Email, "@"); at > 0 {
			name = e.Email[:at]
		} else {
			name = e.Email
		}
	}
	return &User{
		ID:            e.UID,
		Email:         e.Email,
		Name:          name,
		Role:          "user",
		EmailVerified: e.EmailVerified,
		AvatarURL:     e.PhotoURL,
		Provider:      e.ProviderID,
	}
}

// TokenClaims represents the claims sessionkit reads out of a bearer token
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
