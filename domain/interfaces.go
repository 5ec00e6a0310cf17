package domain

import "context"

// TokenStore persists the {token, user} pair across restarts.
//
// Implementations must write the pair atomically from the caller's point of
// view: a concurrent reader never observes a token without its matching user
// or vice versa.
type TokenStore interface {
	// Load returns the last persisted pair, or ("", nil) when nothing usable
	// is stored. Corrupt data is treated as absent (logged, never surfaced).
	Load(ctx context.Context) (string, *User)
	Save(ctx context.Context, token string, user *User) error
	// Clear removes the pair and any auxiliary keys left behind by older
	// session formats.
	Clear(ctx context.Context) error
}

// TokenValidator inspects a bearer token's expiry claim.
type TokenValidator interface {
	// IsExpired reports true for malformed tokens as well as expired ones.
	// Fail-closed: a token that cannot be decoded is never trusted.
	IsExpired(token string) bool
}

// AuthAPI is the pure network boundary to the auth backend. It holds no
// session state of its own.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Signup(ctx context.Context, req SignupRequest) (*AuthResult, error)
	// Refresh relies on an out-of-band credential (an HTTP-only cookie held
	// by the client's cookie jar).
	Refresh(ctx context.Context) (*AuthResult, error)
	Verify(ctx context.Context, token string) (*VerifyResult, error)
}

// IdentityProvider is the boundary to a third-party redirect-based sign-in
// SDK.
type IdentityProvider interface {
	// RedirectResult completes a pending redirect sign-in. It returns
	// (nil, nil) when no result is pending.
	RedirectResult(ctx context.Context) (*ExternalIdentity, error)
	// CurrentUser returns the provider's cached signed-in identity, or nil.
	CurrentUser(ctx context.Context) *ExternalIdentity
}

// Navigator applies location changes on behalf of the resolver and guard.
type Navigator interface {
	// Replace navigates to path, replacing the current history entry so the
	// abandoned location is not reachable via back navigation.
	Replace(path string)
}

// IntentStore holds at most one pending redirect intent.
type IntentStore interface {
	Put(intent RedirectIntent)
	// Take returns and clears the pending intent. The second return value
	// reports whether one was present.
	Take() (RedirectIntent, bool)
}
