package mocks

import (
	"sync"

	"github.com/you/sessionkit/domain"
)

// MockNavigator implements domain.Navigator for testing, recording every
// history replacement in order.
type MockNavigator struct {
	ReplaceFunc func(path string)

	mu       sync.Mutex
	Replaced []string
}

// NewMockNavigator creates a recording navigator mock.
func NewMockNavigator() *MockNavigator {
	return &MockNavigator{}
}

// Replace implements domain.Navigator
func (m *MockNavigator) Replace(path string) {
	m.mu.Lock()
	m.Replaced = append(m.Replaced, path)
	m.mu.Unlock()
	if m.ReplaceFunc != nil {
		m.ReplaceFunc(path)
	}
}

// Last returns the most recent replacement target, or "".
func (m *MockNavigator) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Replaced) == 0 {
		return ""
	}
	return m.Replaced[len(m.Replaced)-1]
}

// Compile-time interface compliance verification
var _ domain.Navigator = (*MockNavigator)(nil)
