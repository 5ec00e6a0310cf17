package session

import (
	"sync"
	"time"

	"github.com/you/sessionkit/domain"
)

// MemoryIntentStore implements domain.IntentStore with a single slot. A new
// Put replaces the pending intent; Take consumes it exactly once.
type MemoryIntentStore struct {
	mu      sync.Mutex
	pending *domain.RedirectIntent
}

// NewMemoryIntentStore creates an empty intent store.
func NewMemoryIntentStore() *MemoryIntentStore {
	return &MemoryIntentStore{}
}

// Put implements domain.IntentStore
func (s *MemoryIntentStore) Put(intent domain.RedirectIntent) {
	if intent.CapturedAt.IsZero() {
		intent.CapturedAt = time.Now()
	}
	s.mu.Lock()
	s.pending = &intent
	s.mu.Unlock()
}

// Take implements domain.IntentStore
func (s *MemoryIntentStore) Take() (domain.RedirectIntent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return domain.RedirectIntent{}, false
	}
	intent := *s.pending
	s.pending = nil
	return intent, true
}

var _ domain.IntentStore = (*MemoryIntentStore)(nil)
