package mocks

import "github.com/you/sessionkit/domain"

// MockTokenValidator implements domain.TokenValidator for testing.
type MockTokenValidator struct {
	IsExpiredFunc func(token string) bool
}

// NewMockTokenValidator creates a validator mock that treats every token as
// fresh by default.
func NewMockTokenValidator() *MockTokenValidator {
	return &MockTokenValidator{}
}

// IsExpired implements domain.TokenValidator
func (m *MockTokenValidator) IsExpired(token string) bool {
	if m.IsExpiredFunc != nil {
		return m.IsExpiredFunc(token)
	}
	// Default behavior: fail-closed on empty, fresh otherwise
	return token == ""
}

// Compile-time interface compliance verification
var _ domain.TokenValidator = (*MockTokenValidator)(nil)
