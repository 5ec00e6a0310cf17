package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
)

// Controller owns the client-side belief about who is logged in. It is the
// only writer of the session state and the token store; every state-changing
// operation updates both under the same lock so they cannot drift apart.
//
// State machine: Uninitialized → Checking → {Authenticated, Anonymous}, with
// a transient Refreshing sub-state reachable from Checking. Fail-closed: any
// ambiguous outcome during the boot sequence ends Anonymous with the store
// cleared, never a stale Authenticated.
type Controller struct {
	store        domain.TokenStore
	validator    domain.TokenValidator
	api          domain.AuthAPI
	intents      domain.IntentStore
	logger       *zap.Logger
	loginTimeout time.Duration

	mu       sync.Mutex
	state    domain.SessionState
	user     *domain.User
	token    string
	errMsg   string
	checking bool
	// gen is bumped on every logout. In-flight operations capture it at
	// start and refuse to apply their result if it moved: a sign-out always
	// wins over a late-arriving login or refresh success.
	gen      uint64
	subs     []func(domain.Snapshot)
	disposed bool
}

// NewController creates a session controller in the Uninitialized state.
// Call Init to run the boot-time auth determination.
func NewController(
	store domain.TokenStore,
	validator domain.TokenValidator,
	api domain.AuthAPI,
	intents domain.IntentStore,
	loginTimeout time.Duration,
	logger *zap.Logger,
) *Controller {
	if loginTimeout <= 0 {
		loginTimeout = 30 * time.Second
	}
	return &Controller{
		store:        store,
		validator:    validator,
		api:          api,
		intents:      intents,
		loginTimeout: loginTimeout,
		logger:       logger,
		state:        domain.StateUninitialized,
	}
}

// Subscribe registers fn to be called after every state change. Callbacks
// run outside the controller lock.
func (c *Controller) Subscribe(fn func(domain.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.disposed {
		c.subs = append(c.subs, fn)
	}
}

// Snapshot returns the current externally visible session state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	var u *domain.User
	if c.user != nil {
		cp := *c.user
		u = &cp
	}
	return domain.Snapshot{State: c.state, User: u, Token: c.token, Err: c.errMsg}
}

// Init runs the boot-time auth determination: load the stored pair, refresh
// if the token is expired, then verify server-side. Overlapping invocations
// (rapid route changes) are suppressed; the second call returns
// domain.ErrCheckInFlight without touching state.
func (c *Controller) Init(ctx context.Context) error {
	return c.CheckAuth(ctx)
}

// CheckAuth implements the Checking/Refreshing sequence. Only one may be in
// flight at a time.
func (c *Controller) CheckAuth(ctx context.Context) error {
	c.mu.Lock()
	if c.checking {
		c.mu.Unlock()
		return domain.ErrCheckInFlight
	}
	c.checking = true
	gen := c.gen
	c.state = domain.StateChecking
	c.errMsg = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	defer func() {
		c.mu.Lock()
		c.checking = false
		c.mu.Unlock()
	}()

	token, user := c.store.Load(ctx)
	if token == "" {
		return c.settleAnonymous(ctx, gen, nil, false)
	}

	if c.validator.IsExpired(token) {
		c.transition(gen, domain.StateRefreshing)
		res, err := c.api.Refresh(ctx)
		if err != nil {
			c.audit(domain.NewAuditEvent(domain.TokenRefreshFailure).WithError(err))
			return c.settleAnonymous(ctx, gen, err, true)
		}
		c.audit(domain.NewAuditEvent(domain.TokenRefreshEvent).WithUser(res.User))
		token, user = res.Token, res.User
	}

	res, err := c.api.Verify(ctx, token)
	switch {
	case err == nil && res.Valid:
		// token accepted as-is
	case err == nil || errors.Is(err, domain.ErrVerificationFailed):
		// rejected token gets exactly one refresh+verify retry
		c.transition(gen, domain.StateRefreshing)
		refreshed, rerr := c.api.Refresh(ctx)
		if rerr != nil {
			c.audit(domain.NewAuditEvent(domain.TokenRefreshFailure).WithError(rerr))
			return c.settleAnonymous(ctx, gen, rerr, true)
		}
		token, user = refreshed.Token, refreshed.User
		res, err = c.api.Verify(ctx, token)
		if err != nil || !res.Valid {
			if err == nil {
				err = domain.ErrVerificationFailed
			}
			c.audit(domain.NewAuditEvent(domain.SessionRejectedEvent).WithError(err))
			return c.settleAnonymous(ctx, gen, err, true)
		}
	default:
		// ambiguous error: fail closed rather than trust a stale session
		c.audit(domain.NewAuditEvent(domain.SessionRejectedEvent).WithError(err))
		return c.settleAnonymous(ctx, gen, err, true)
	}

	if res.User != nil {
		user = res.User
	}
	c.audit(domain.NewAuditEvent(domain.SessionVerifiedEvent).WithUser(user))
	return c.settleAuthenticated(ctx, gen, token, user, "")
}

// Login is the single entry point for all three sign-in shapes. It returns
// the path the caller should navigate to after a successful authentication
// (the consumed redirect intent, defaulting to "/").
func (c *Controller) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	switch r := req.(type) {
	case nil:
		// login(nil) is a synonym for logout, kept for the resolver's
		// cleanup path
		c.Logout(ctx)
		return "", nil
	case domain.SignOut:
		c.Logout(ctx)
		return "", nil
	case domain.Credentials:
		return c.loginWithCredentials(ctx, r)
	case domain.Identity:
		return c.loginWithIdentity(ctx, r)
	default:
		return "", domain.ErrValidation
	}
}

func (c *Controller) loginWithCredentials(ctx context.Context, creds domain.Credentials) (string, error) {
	gen := c.beginAttempt()

	lctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	res, err := c.api.Login(lctx, creds.Email, creds.Password)
	if err != nil {
		c.audit(domain.NewAuditEvent(domain.UserLoginFailureEvent).WithError(err))
		return "", c.settleAnonymous(ctx, gen, err, true)
	}

	c.audit(domain.NewAuditEvent(domain.UserLoginEvent).WithUser(res.User))
	if err := c.settleAuthenticated(ctx, gen, res.Token, res.User, ""); err != nil {
		return "", err
	}
	return c.takeIntent(), nil
}

func (c *Controller) loginWithIdentity(ctx context.Context, id domain.Identity) (string, error) {
	if id.User == nil || id.Token == "" {
		return "", domain.ErrValidation
	}
	gen := c.beginAttempt()

	c.audit(domain.NewAuditEvent(domain.UserLoginEvent).WithUser(id.User))
	if err := c.settleAuthenticated(ctx, gen, id.Token, id.User, ""); err != nil {
		return "", err
	}
	return c.takeIntent(), nil
}

// Signup mirrors credential login against the registration endpoint.
func (c *Controller) Signup(ctx context.Context, req domain.SignupRequest) (string, error) {
	if err := req.Validate(); err != nil {
		c.setError(err)
		return "", err
	}
	gen := c.beginAttempt()

	sctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	res, err := c.api.Signup(sctx, req)
	if err != nil {
		return "", c.settleAnonymous(ctx, gen, err, true)
	}

	c.audit(domain.NewAuditEvent(domain.UserSignupEvent).WithUser(res.User))
	if err := c.settleAuthenticated(ctx, gen, res.Token, res.User, ""); err != nil {
		return "", err
	}
	return c.takeIntent(), nil
}

// Logout clears the token store and flips the session to Anonymous
// synchronously. No network call is made; the generation bump guarantees any
// in-flight login or refresh resolving later cannot resurrect the session.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("token store clear failed during logout", zap.Error(err))
	}
	prev := c.user
	c.token = ""
	c.user = nil
	c.errMsg = ""
	c.state = domain.StateAnonymous
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.audit(domain.NewAuditEvent(domain.UserLogoutEvent).WithUser(prev))
	c.notify(snap)
}

// UpdateUser merges a partial update into the current user and persists the
// result. The user record is otherwise replaced wholesale on login/logout.
func (c *Controller) UpdateUser(ctx context.Context, patch domain.UserPatch) (*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateAuthenticated || c.user == nil {
		return nil, domain.ErrVerificationFailed
	}

	merged := patch.Apply(*c.user)
	if err := c.store.Save(ctx, c.token, &merged); err != nil {
		return nil, err
	}
	c.user = &merged
	cp := merged
	return &cp, nil
}

// Dispose tears the controller down: subscribers are dropped and any
// in-flight operation is prevented from applying its result.
func (c *Controller) Dispose() {
	c.mu.Lock()
	c.gen++
	c.subs = nil
	c.disposed = true
	c.mu.Unlock()
}

// beginAttempt clears the previous error, marks the session as loading and
// returns the generation to validate against when the attempt resolves.
func (c *Controller) beginAttempt() uint64 {
	c.mu.Lock()
	gen := c.gen
	c.errMsg = ""
	c.state = domain.StateChecking
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return gen
}

// transition moves to a sub-state if the attempt has not been superseded.
func (c *Controller) transition(gen uint64, state domain.SessionState) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = state
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// settleAuthenticated persists the pair and flips to Authenticated in one
// critical section. A superseded attempt writes nothing.
func (c *Controller) settleAuthenticated(ctx context.Context, gen uint64, token string, user *domain.User, errMsg string) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return domain.ErrSessionSuperseded
	}
	if err := c.store.Save(ctx, token, user); err != nil {
		// cannot guarantee store/memory consistency; fail closed
		_ = c.store.Clear(ctx)
		c.token = ""
		c.user = nil
		c.state = domain.StateAnonymous
		c.errMsg = domain.UserMessage(err)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return err
	}
	c.token = token
	c.user = user
	c.state = domain.StateAuthenticated
	c.errMsg = errMsg
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// settleAnonymous flips to Anonymous, optionally clearing the store, and
// records the user-facing error message. Returns cause for the caller.
func (c *Controller) settleAnonymous(ctx context.Context, gen uint64, cause error, clearStore bool) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return domain.ErrSessionSuperseded
	}
	if clearStore {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn("token store clear failed", zap.Error(err))
		}
	}
	c.token = ""
	c.user = nil
	c.state = domain.StateAnonymous
	c.errMsg = domain.UserMessage(cause)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return cause
}

// setError records a user-facing error without changing state.
func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.errMsg = domain.UserMessage(err)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// takeIntent consumes the pending redirect intent, defaulting to "/".
func (c *Controller) takeIntent() string {
	if c.intents != nil {
		if intent, ok := c.intents.Take(); ok && intent.FromPath != "" {
			return intent.FromPath
		}
	}
	return "/"
}

func (c *Controller) notify(snap domain.Snapshot) {
	c.mu.Lock()
	subs := make([]func(domain.Snapshot), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) audit(ev *domain.AuditEvent) {
	fields := []zap.Field{
		zap.String("event", string(ev.EventType)),
		zap.Bool("success", ev.Success),
	}
	if ev.UserID != "" {
		fields = append(fields, zap.String("user_id", ev.UserID))
	}
	if ev.Provider != "" {
		fields = append(fields, zap.String("provider", ev.Provider))
	}
	if ev.ErrorMsg != "" {
		fields = append(fields, zap.String("error", ev.ErrorMsg))
	}
	if ev.Success {
		c.logger.Info("session event", fields...)
	} else {
		c.logger.Warn("session event", fields...)
	}
}
