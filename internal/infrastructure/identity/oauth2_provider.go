package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/you/sessionkit/domain"
)

// Endpoints configures the provider's OAuth2 surface.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserinfoURL string
}

// OAuth2Provider implements domain.IdentityProvider over the standard
// authorization-code flow. BeginSignIn hands out the consent URL,
// CaptureCallback records the provider's redirect parameters, and
// RedirectResult completes the exchange exactly once per capture.
type OAuth2Provider struct {
	cfg         *oauth2.Config
	userinfoURL string
	providerID  string
	logger      *zap.Logger

	mu      sync.Mutex
	state   string
	pending *callbackParams
	current *domain.ExternalIdentity
}

type callbackParams struct {
	code  string
	state string
}

// userinfoPayload mirrors the OpenID Connect userinfo response.
type userinfoPayload struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

// NewOAuth2Provider creates an identity provider for a single upstream
// (e.g. Google).
func NewOAuth2Provider(clientID, clientSecret, redirectURL, providerID string, ep Endpoints, scopes []string, logger *zap.Logger) *OAuth2Provider {
	return &OAuth2Provider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  ep.AuthURL,
				TokenURL: ep.TokenURL,
			},
		},
		userinfoURL: ep.UserinfoURL,
		providerID:  providerID,
		logger:      logger,
	}
}

// BeginSignIn returns the consent URL carrying a fresh anti-replay state
// value.
func (p *OAuth2Provider) BeginSignIn() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = uuid.NewString()
	return p.cfg.AuthCodeURL(p.state)
}

// CaptureCallback records the code and state from the provider's redirect.
// The resolver completes the sign-in via RedirectResult.
func (p *OAuth2Provider) CaptureCallback(q url.Values) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &callbackParams{code: q.Get("code"), state: q.Get("state")}
}

// RedirectResult implements domain.IdentityProvider. Returns (nil, nil) when
// no callback is pending. The pending capture is consumed regardless of
// outcome so a failed exchange is not retried implicitly.
func (p *OAuth2Provider) RedirectResult(ctx context.Context) (*domain.ExternalIdentity, error) {
	p.mu.Lock()
	pending := p.pending
	expectedState := p.state
	p.pending = nil
	p.mu.Unlock()

	if pending == nil {
		return nil, nil
	}
	if pending.code == "" {
		return nil, domain.ErrRedirectCancelled
	}
	if expectedState == "" || pending.state != expectedState {
		return nil, fmt.Errorf("state mismatch in provider callback")
	}

	tok, err := p.cfg.Exchange(ctx, pending.code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %s", domain.ErrNetworkUnavailable, err)
	}

	info, err := p.fetchUserinfo(ctx, tok)
	if err != nil {
		return nil, err
	}

	bearer := tok.AccessToken
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		bearer = idToken
	}

	identity := &domain.ExternalIdentity{
		UID:           info.Sub,
		Email:         info.Email,
		DisplayName:   info.Name,
		EmailVerified: info.EmailVerified,
		PhotoURL:      info.Picture,
		ProviderID:    p.providerID,
		IDToken:       bearer,
	}

	p.mu.Lock()
	p.current = identity
	p.mu.Unlock()

	p.logger.Info("external identity resolved",
		zap.String("provider", p.providerID), zap.String("uid", info.Sub))
	return identity, nil
}

// CurrentUser implements domain.IdentityProvider.
func (p *OAuth2Provider) CurrentUser(ctx context.Context) *domain.ExternalIdentity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// SignOut drops the cached identity.
func (p *OAuth2Provider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
}

func (p *OAuth2Provider) fetchUserinfo(ctx context.Context, tok *oauth2.Token) (*userinfoPayload, error) {
	client := p.cfg.Client(ctx, tok)
	resp, err := client.Get(p.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo fetch failed: %s", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info userinfoPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("malformed userinfo response: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo response missing subject")
	}
	return &info, nil
}

// Compile-time interface compliance verification
var _ domain.IdentityProvider = (*OAuth2Provider)(nil)
