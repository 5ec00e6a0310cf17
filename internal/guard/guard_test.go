package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/sessionkit/domain"
	"github.com/you/sessionkit/internal/session"
)

type staticSession struct {
	snap domain.Snapshot
}

func (s staticSession) Snapshot() domain.Snapshot { return s.snap }

func TestEvaluate(t *testing.T) {
	authedUser := &domain.User{ID: "u1", Role: "user"}

	tests := []struct {
		name   string
		snap   domain.Snapshot
		public bool
		want   Decision
	}{
		{
			name: "loading wins regardless of auth",
			snap: domain.Snapshot{State: domain.StateChecking, User: authedUser},
			want: ShowLoading,
		},
		{
			name: "refreshing is still loading",
			snap: domain.Snapshot{State: domain.StateRefreshing},
			want: ShowLoading,
		},
		{
			name: "uninitialized is loading",
			snap: domain.Snapshot{State: domain.StateUninitialized},
			want: ShowLoading,
		},
		{
			name: "anonymous redirects",
			snap: domain.Snapshot{State: domain.StateAnonymous},
			want: Redirect,
		},
		{
			name: "authenticated renders",
			snap: domain.Snapshot{State: domain.StateAuthenticated, User: authedUser},
			want: Render,
		},
		{
			name:   "public escape hatch renders while anonymous",
			snap:   domain.Snapshot{State: domain.StateAnonymous},
			public: true,
			want:   Render,
		},
		{
			name:   "public escape hatch renders while loading",
			snap:   domain.Snapshot{State: domain.StateChecking},
			public: true,
			want:   Render,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.snap, tt.public))
		})
	}
}

func TestGuard_Check_RedirectCapturesIntent(t *testing.T) {
	intents := session.NewMemoryIntentStore()
	g := New(staticSession{domain.Snapshot{State: domain.StateAnonymous}}, intents, "/login")

	d, target := g.Check("/user/tickets", false)

	assert.Equal(t, Redirect, d)
	assert.Equal(t, "/login?redirect=%2Fuser%2Ftickets", target)

	intent, ok := intents.Take()
	require.True(t, ok)
	assert.Equal(t, "/user/tickets", intent.FromPath)
}

func TestGuard_Check_RenderDoesNotTouchIntent(t *testing.T) {
	intents := session.NewMemoryIntentStore()
	g := New(staticSession{domain.Snapshot{State: domain.StateAuthenticated, User: &domain.User{ID: "u1"}}}, intents, "/login")

	d, target := g.Check("/user/tickets", false)

	assert.Equal(t, Render, d)
	assert.Empty(t, target)
	_, ok := intents.Take()
	assert.False(t, ok)
}

func TestGuard_Check_LoadingRendersPlaceholderOnly(t *testing.T) {
	intents := session.NewMemoryIntentStore()
	g := New(staticSession{domain.Snapshot{State: domain.StateChecking}}, intents, "/login")

	d, _ := g.Check("/admin/dashboard", false)

	assert.Equal(t, ShowLoading, d)
	_, ok := intents.Take()
	assert.False(t, ok, "no intent is captured while loading")
}
