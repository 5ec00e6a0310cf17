package mocks

import (
	"context"
	"sync"

	"github.com/you/sessionkit/domain"
)

// MockAuthAPI implements domain.AuthAPI for testing, tracking call counts
// per operation.
type MockAuthAPI struct {
	LoginFunc   func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	SignupFunc  func(ctx context.Context, req domain.SignupRequest) (*domain.AuthResult, error)
	RefreshFunc func(ctx context.Context) (*domain.AuthResult, error)
	VerifyFunc  func(ctx context.Context, token string) (*domain.VerifyResult, error)

	mu           sync.Mutex
	LoginCalls   int
	SignupCalls  int
	RefreshCalls int
	VerifyCalls  int
}

// NewMockAuthAPI creates a new MockAuthAPI with default success behaviors.
func NewMockAuthAPI() *MockAuthAPI {
	return &MockAuthAPI{}
}

func (m *MockAuthAPI) count(n *int) {
	m.mu.Lock()
	*n++
	m.mu.Unlock()
}

// Login implements domain.AuthAPI
func (m *MockAuthAPI) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	m.count(&m.LoginCalls)
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return &domain.AuthResult{
		Token: "mock_token",
		User:  &domain.User{ID: "u1", Email: email, Name: "Mock User", Role: "user"},
	}, nil
}

// Signup implements domain.AuthAPI
func (m *MockAuthAPI) Signup(ctx context.Context, req domain.SignupRequest) (*domain.AuthResult, error) {
	m.count(&m.SignupCalls)
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, req)
	}
	return &domain.AuthResult{
		Token: "mock_token",
		User:  &domain.User{ID: "u1", Email: req.Email, Name: req.Name, Role: "user"},
	}, nil
}

// Refresh implements domain.AuthAPI
func (m *MockAuthAPI) Refresh(ctx context.Context) (*domain.AuthResult, error) {
	m.count(&m.RefreshCalls)
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return &domain.AuthResult{
		Token: "mock_refreshed_token",
		User:  &domain.User{ID: "u1", Email: "mock@example.com", Role: "user"},
	}, nil
}

// Verify implements domain.AuthAPI
func (m *MockAuthAPI) Verify(ctx context.Context, token string) (*domain.VerifyResult, error) {
	m.count(&m.VerifyCalls)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	return &domain.VerifyResult{
		Valid: true,
		User:  &domain.User{ID: "u1", Email: "mock@example.com", Role: "user"},
	}, nil
}

// Compile-time interface compliance verification
var _ domain.AuthAPI = (*MockAuthAPI)(nil)
