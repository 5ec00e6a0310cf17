package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
	"github.com/you/sessionkit/internal/mocks"
)

type fixture struct {
	store     *mocks.MockTokenStore
	validator *mocks.MockTokenValidator
	api       *mocks.MockAuthAPI
	intents   *MemoryIntentStore
	ctrl      *Controller
}

func newFixture() *fixture {
	f := &fixture{
		store:     mocks.NewMockTokenStore(),
		validator: mocks.NewMockTokenValidator(),
		api:       mocks.NewMockAuthAPI(),
		intents:   NewMemoryIntentStore(),
	}
	f.ctrl = NewController(f.store, f.validator, f.api, f.intents, 30*time.Second, zap.NewNop())
	return f
}

func storedUser() *domain.User {
	return &domain.User{ID: "u1", Email: "u1@example.com", Name: "User One", Role: "user"}
}

func TestCheckAuth_NoStoredToken(t *testing.T) {
	f := newFixture()

	err := f.ctrl.CheckAuth(context.Background())
	require.NoError(t, err)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.Zero(t, f.api.RefreshCalls)
	assert.Zero(t, f.api.VerifyCalls)
}

func TestCheckAuth_FreshTokenVerifies(t *testing.T) {
	f := newFixture()
	f.store.Seed("tok-1", storedUser())
	f.api.VerifyFunc = func(ctx context.Context, token string) (*domain.VerifyResult, error) {
		assert.Equal(t, "tok-1", token)
		return &domain.VerifyResult{Valid: true, User: storedUser()}, nil
	}

	require.NoError(t, f.ctrl.CheckAuth(context.Background()))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, "u1", snap.User.ID)
	assert.Zero(t, f.api.RefreshCalls, "fresh token must not trigger a refresh")
}

func TestCheckAuth_ExpiredTokenRefreshesBeforeVerify(t *testing.T) {
	f := newFixture()
	f.store.Seed("tok-old", storedUser())
	f.validator.IsExpiredFunc = func(string) bool { return true }

	var order []string
	f.api.RefreshFunc = func(ctx context.Context) (*domain.AuthResult, error) {
		order = append(order, "refresh")
		return &domain.AuthResult{Token: "tok-new", User: storedUser()}, nil
	}
	f.api.VerifyFunc = func(ctx context.Context, token string) (*domain.VerifyResult, error) {
		order = append(order, "verify")
		assert.Equal(t, "tok-new", token)
		return &domain.VerifyResult{Valid: true, User: storedUser()}, nil
	}

	require.NoError(t, f.ctrl.CheckAuth(context.Background()))

	assert.Equal(t, []string{"refresh", "verify"}, order)
	assert.Equal(t, domain.StateAuthenticated, f.ctrl.Snapshot().State)

	token, user := f.store.Stored()
	assert.Equal(t, "tok-new", token, "storage must hold the refreshed token")
	require.NotNil(t, user)
}

func TestCheckAuth_ExpiredTokenRefreshRejected(t *testing.T) {
	f := newFixture()
	f.store.Seed("tok-old", storedUser())
	f.validator.IsExpiredFunc = func(string) bool { return true }
	f.api.RefreshFunc = func(ctx context.Context) (*domain.AuthResult, error) {
		return nil, domain.ErrRefreshFailed
	}

	err := f.ctrl.CheckAuth(context.Background())
	assert.ErrorIs(t, err, domain.ErrRefreshFailed)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAnonymous, snap.State)
	assert.NotEmpty(t, snap.Err)

	token, user := f.store.Stored()
	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.Zero(t, f.api.VerifyCalls, "verify must not run after a failed refresh")
}

func TestCheckAuth_VerifyRejectionGetsExactlyOneRetry(t *testing.T) {
	t.Run("retry succeeds", func(t *testing.T) {
		f := newFixture()
		f.store.Seed("tok-1", storedUser())
		f.api.VerifyFunc = func(ctx context.Context, token string) (*domain.VerifyResult, error) {
			if token == "tok-1" {
				return nil, domain.ErrVerificationFailed
			}
			return &domain.VerifyResult{Valid: true, User: storedUser()}, nil
		}
		f.api.RefreshFunc = func(ctx context.Context) (*domain.AuthResult, error) {
			return &domain.AuthResult{Token: "tok-2", User: storedUser()}, nil
		}

		require.NoError(t, f.ctrl.CheckAuth(context.Background()))

		assert.Equal(t, domain.StateAuthenticated, f.ctrl.Snapshot().State)
		assert.Equal(t, 1, f.api.RefreshCalls)
		assert.Equal(t, 2, f.api.VerifyCalls)
	})

	t.Run("retry also fails", func(t *testing.T) {
		f := newFixture()
		f.store.Seed("tok-1", storedUser())
		f.api.VerifyFunc = func(ctx context.Context, token string) (*domain.VerifyResult, error) {
			return &domain.VerifyResult{Valid: false}, nil
		}

		err := f.ctrl.CheckAuth(context.Background())
		assert.Error(t, err)

		assert.Equal(t, domain.StateAnonymous, f.ctrl.Snapshot().State)
		assert.Equal(t, 1, f.api.RefreshCalls, "exactly one retry")
		assert.Equal(t, 2, f.api.VerifyCalls)

		token, _ := f.store.Stored()
		assert.Empty(t, token)
	})
}

func TestCheckAuth_AmbiguousVerifyErrorFailsClosed(t *testing.T) {
	f := newFixture()
	f.store.Seed("tok-1", storedUser())
	f.api.VerifyFunc = func(ctx context.Context, token string) (*domain.VerifyResult, error) {
		return nil, domain.ErrNetworkUnavailable
	}

	err := f.ctrl.CheckAuth(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetworkUnavailable)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAnonymous, snap.State)
	token, _ := f.store.Stored()
	assert.Empty(t, token, "ambiguous errors must never leave a stale session behind")
	assert.Zero(t, f.api.RefreshCalls, "network trouble is not a rejection, no retry")
}

func TestCheckAuth_SuppressesOverlappingInvocations(t *testing.T) {
	f := newFixture()
	f.store.Seed("tok-1", storedUser())

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.VerifyFunc = func(ctx context.Context, token string) (*domain.VerifyResult, error) {
		close(entered)
		<-release
		return &domain.VerifyResult{Valid: true, User: storedUser()}, nil
	}

	done := make(chan error, 1)
	go func() { done <- f.ctrl.CheckAuth(context.Background()) }()
	<-entered

	err := f.ctrl.CheckAuth(context.Background())
	assert.ErrorIs(t, err, domain.ErrCheckInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.api.VerifyCalls)
}

func TestLogin_WrongCredentials(t *testing.T) {
	f := newFixture()
	f.api.LoginFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		return nil, domain.ErrInvalidCredentials
	}

	_, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAnonymous, snap.State)
	assert.NotEmpty(t, snap.Err)

	token, user := f.store.Stored()
	assert.Empty(t, token, "no token may be written on a failed login")
	assert.Nil(t, user)
}

func TestLogin_SuccessConsumesIntentOnce(t *testing.T) {
	f := newFixture()
	f.intents.Put(domain.RedirectIntent{FromPath: "/user/tickets"})

	target, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "/user/tickets", target)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAuthenticated, snap.State)
	token, user := f.store.Stored()
	assert.Equal(t, "mock_token", token)
	require.NotNil(t, user)

	// the intent is gone; a second login falls back to the default
	target, err = f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "/", target)
}

func TestLogin_IdentityBranch(t *testing.T) {
	f := newFixture()

	user := &domain.User{ID: "g-1", Email: "jane@example.com", Name: "Jane", Role: "user", Provider: "google.com"}
	target, err := f.ctrl.Login(context.Background(), domain.Identity{User: user, Token: "id-token"})
	require.NoError(t, err)
	assert.Equal(t, "/", target)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAuthenticated, snap.State)
	assert.Equal(t, "g-1", snap.User.ID)
	assert.Zero(t, f.api.LoginCalls, "identity login never hits the credentials endpoint")

	token, _ := f.store.Stored()
	assert.Equal(t, "id-token", token)
}

func TestLogin_SignOutBranchEqualsLogout(t *testing.T) {
	f := newFixture()
	_, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)

	_, err = f.ctrl.Login(context.Background(), domain.SignOut{})
	require.NoError(t, err)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)

	token, user := f.store.Stored()
	assert.Empty(t, token)
	assert.Nil(t, user)
}

func TestLogin_NilRequestIsSignOut(t *testing.T) {
	f := newFixture()
	_, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)

	_, err = f.ctrl.Login(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAnonymous, f.ctrl.Snapshot().State)
}

func TestLogout_WinsOverInFlightLogin(t *testing.T) {
	f := newFixture()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.LoginFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		close(entered)
		<-release
		return &domain.AuthResult{Token: "late-token", User: storedUser()}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
		done <- err
	}()
	<-entered

	f.ctrl.Logout(context.Background())
	close(release)

	err := <-done
	assert.ErrorIs(t, err, domain.ErrSessionSuperseded)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	token, user := f.store.Stored()
	assert.Empty(t, token, "a late login success must not resurrect the session")
	assert.Nil(t, user)
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := newFixture()
	_, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)

	f.ctrl.Logout(context.Background())

	snap := f.ctrl.Snapshot()
	assert.Equal(t, domain.StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)
	assert.Empty(t, snap.Err)
	assert.GreaterOrEqual(t, f.store.ClearCalls, 1)
}

func TestSignup(t *testing.T) {
	t.Run("success mirrors login", func(t *testing.T) {
		f := newFixture()
		f.intents.Put(domain.RedirectIntent{FromPath: "/checkout"})

		target, err := f.ctrl.Signup(context.Background(), domain.SignupRequest{
			Name: "Jane", Email: "jane@example.com", Password: "secret", PasswordConfirm: "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "/checkout", target)
		assert.Equal(t, domain.StateAuthenticated, f.ctrl.Snapshot().State)
	})

	t.Run("validation failure never reaches the network", func(t *testing.T) {
		f := newFixture()

		_, err := f.ctrl.Signup(context.Background(), domain.SignupRequest{
			Name: "Jane", Email: "jane@example.com", Password: "secret", PasswordConfirm: "other",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, f.api.SignupCalls)
		assert.NotEmpty(t, f.ctrl.Snapshot().Err)
	})
}

func TestUpdateUser(t *testing.T) {
	f := newFixture()
	_, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)

	name := "Renamed"
	updated, err := f.ctrl.UpdateUser(context.Background(), domain.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "a@b.com", updated.Email, "unpatched fields survive the merge")

	_, user := f.store.Stored()
	require.NotNil(t, user)
	assert.Equal(t, "Renamed", user.Name, "merge is persisted in the same transaction")
}

func TestUpdateUser_RequiresAuthenticatedSession(t *testing.T) {
	f := newFixture()
	name := "x"
	_, err := f.ctrl.UpdateUser(context.Background(), domain.UserPatch{Name: &name})
	assert.Error(t, err)
}

func TestSubscribe_NotifiedOnTransitions(t *testing.T) {
	f := newFixture()

	var states []domain.SessionState
	f.ctrl.Subscribe(func(s domain.Snapshot) { states = append(states, s.State) })

	require.NoError(t, f.ctrl.CheckAuth(context.Background()))

	require.NotEmpty(t, states)
	assert.Equal(t, domain.StateChecking, states[0])
	assert.Equal(t, domain.StateAnonymous, states[len(states)-1])
}

func TestDispose_DropsSubscribersAndCancelsInFlight(t *testing.T) {
	f := newFixture()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.LoginFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		close(entered)
		<-release
		return &domain.AuthResult{Token: "t", User: storedUser()}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"})
		done <- err
	}()
	<-entered
	f.ctrl.Dispose()
	close(release)

	assert.ErrorIs(t, <-done, domain.ErrSessionSuperseded)
}

func TestMemoryIntentStore_TakeConsumesOnce(t *testing.T) {
	s := NewMemoryIntentStore()

	_, ok := s.Take()
	assert.False(t, ok)

	s.Put(domain.RedirectIntent{FromPath: "/a"})
	s.Put(domain.RedirectIntent{FromPath: "/b"})

	intent, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, "/b", intent.FromPath, "a later capture replaces the pending intent")
	assert.False(t, intent.CapturedAt.IsZero())

	_, ok = s.Take()
	assert.False(t, ok)
}

func TestCheckAuth_StoreSaveFailureFailsClosed(t *testing.T) {
	f := newFixture()
	f.store.Seed("tok-1", storedUser())
	f.store.SaveFunc = func(ctx context.Context, token string, user *domain.User) error {
		return errors.New("disk full")
	}

	err := f.ctrl.CheckAuth(context.Background())
	assert.Error(t, err)
	assert.Equal(t, domain.StateAnonymous, f.ctrl.Snapshot().State)
}
