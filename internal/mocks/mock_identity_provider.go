package mocks

import (
	"context"
	"sync"

	"github.com/you/sessionkit/domain"
)

// MockIdentityProvider implements domain.IdentityProvider for testing.
type MockIdentityProvider struct {
	RedirectResultFunc func(ctx context.Context) (*domain.ExternalIdentity, error)
	CurrentUserFunc    func(ctx context.Context) *domain.ExternalIdentity

	mu                  sync.Mutex
	RedirectResultCalls int
	CurrentUserCalls    int
}

// NewMockIdentityProvider creates a provider mock with no pending redirect
// result and no signed-in user.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{}
}

// RedirectResult implements domain.IdentityProvider
func (m *MockIdentityProvider) RedirectResult(ctx context.Context) (*domain.ExternalIdentity, error) {
	m.mu.Lock()
	m.RedirectResultCalls++
	m.mu.Unlock()
	if m.RedirectResultFunc != nil {
		return m.RedirectResultFunc(ctx)
	}
	return nil, nil
}

// CurrentUser implements domain.IdentityProvider
func (m *MockIdentityProvider) CurrentUser(ctx context.Context) *domain.ExternalIdentity {
	m.mu.Lock()
	m.CurrentUserCalls++
	m.mu.Unlock()
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.IdentityProvider = (*MockIdentityProvider)(nil)
