package mocks

import (
	"context"
	"sync"

	"github.com/you/sessionkit/domain"
)

// MockTokenStore implements domain.TokenStore for testing. Without scripted
// funcs it behaves as a working in-memory store, tracking call counts.
type MockTokenStore struct {
	LoadFunc  func(ctx context.Context) (string, *domain.User)
	SaveFunc  func(ctx context.Context, token string, user *domain.User) error
	ClearFunc func(ctx context.Context) error

	mu         sync.Mutex
	token      string
	user       *domain.User
	SaveCalls  int
	ClearCalls int
}

// NewMockTokenStore creates an empty in-memory token store mock.
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{}
}

// Seed pre-populates the stored pair.
func (m *MockTokenStore) Seed(token string, user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.user = user
}

// Stored returns the currently stored pair.
func (m *MockTokenStore) Stored() (string, *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.user
}

// Load implements domain.TokenStore
func (m *MockTokenStore) Load(ctx context.Context) (string, *domain.User) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.user
}

// Save implements domain.TokenStore
func (m *MockTokenStore) Save(ctx context.Context, token string, user *domain.User) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, token, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.user = user
	return nil
}

// Clear implements domain.TokenStore
func (m *MockTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.ClearCalls++
	m.mu.Unlock()
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	return nil
}

// Compile-time interface compliance verification
var _ domain.TokenStore = (*MockTokenStore)(nil)
