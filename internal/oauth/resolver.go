package oauth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
	"github.com/you/sessionkit/internal/session"
)

// redirectMarkers are the query parameters an identity provider appends when
// returning from a redirect-based sign-in.
var redirectMarkers = []string{"state", "code", "authuser"}

// stripParams also removes these informational parameters some providers
// attach alongside the markers.
var auxParams = []string{"scope", "prompt", "session_state", "hd"}

// Outcome describes how a resolution attempt ended.
type Outcome int

const (
	// OutcomeNotHandling means the URL carried no redirect markers.
	OutcomeNotHandling Outcome = iota
	// OutcomeSkipped means the flow was suppressed: this attempt is already
	// being handled, a previous one succeeded, or the session was already
	// authenticated.
	OutcomeSkipped
	// OutcomeCompleted means a user was signed in and navigation issued.
	OutcomeCompleted
	// OutcomeFailed means the attempt ended with a user-facing message. The
	// URL has been cleaned; the user stays anonymous and may retry manually.
	OutcomeFailed
)

// Result is the terminal report of a Resolve call.
type Result struct {
	Outcome Outcome
	// Message is the user-facing error text when Outcome is OutcomeFailed.
	Message string
	// Target is the navigation destination when Outcome is OutcomeCompleted.
	Target string
}

// Resolver detects a return from an external identity provider's
// redirect-based sign-in and completes each attempt at most once. All
// failures are terminal for the attempt: no retry loop, URL always cleaned,
// and the user may start a new sign-in afterwards.
type Resolver struct {
	provider domain.IdentityProvider
	sessions *session.Controller
	nav      domain.Navigator
	logger   *zap.Logger
	handled  atomic.Bool
}

// NewResolver creates a redirect resolver.
func NewResolver(provider domain.IdentityProvider, sessions *session.Controller, nav domain.Navigator, logger *zap.Logger) *Resolver {
	return &Resolver{provider: provider, sessions: sessions, nav: nav, logger: logger}
}

// Resolve inspects current for provider-redirect markers and, when present,
// completes the external sign-in and logs the normalized identity in through
// the session controller's Identity branch.
func (r *Resolver) Resolve(ctx context.Context, current *url.URL) Result {
	if !hasRedirectMarkers(current) {
		return Result{Outcome: OutcomeNotHandling}
	}

	// the boot-time auth check races this flow; a session it already
	// established must not be clobbered by a redundant login
	if r.sessions.Snapshot().Authenticated() {
		r.logger.Debug("redirect resolution skipped, session already authenticated")
		return Result{Outcome: OutcomeSkipped}
	}

	if !r.handled.CompareAndSwap(false, true) {
		return Result{Outcome: OutcomeSkipped}
	}

	identity, err := r.provider.RedirectResult(ctx)

	// a result has been obtained, success or failure: clean the URL now so a
	// reload cannot replay the redirect
	r.stripParams(current)

	if err != nil {
		classified := classify(err)
		r.logger.Warn("redirect sign-in failed", zap.Error(err))
		r.audit(domain.NewAuditEvent(domain.RedirectFailureEvent).WithError(classified))
		return r.fail(Result{Outcome: OutcomeFailed, Message: domain.UserMessage(classified)})
	}

	if identity == nil {
		// no user and no error: fall back to the provider's cached identity
		identity = r.provider.CurrentUser(ctx)
		if identity == nil {
			r.audit(domain.NewAuditEvent(domain.RedirectFailureEvent).WithError(domain.ErrNoRedirectResult))
			return r.fail(Result{Outcome: OutcomeFailed, Message: domain.UserMessage(domain.ErrNoRedirectResult)})
		}
	}

	user := identity.Normalize()
	target, err := r.sessions.Login(ctx, domain.Identity{User: user, Token: identity.IDToken})
	if err != nil {
		r.audit(domain.NewAuditEvent(domain.RedirectFailureEvent).WithUser(user).WithError(err))
		return r.fail(Result{Outcome: OutcomeFailed, Message: domain.UserMessage(err)})
	}

	r.audit(domain.NewAuditEvent(domain.RedirectCompletedEvent).WithUser(user))

	// replace history so back navigation cannot loop into the login page
	r.nav.Replace(target)
	return Result{Outcome: OutcomeCompleted, Target: target}
}

// fail releases the latch before reporting the failure. The latch suppresses
// duplicate handling of one callback, not future attempts: the user stays
// anonymous and a fresh sign-in must be able to resolve again.
func (r *Resolver) fail(res Result) Result {
	r.handled.Store(false)
	return res
}

func hasRedirectMarkers(u *url.URL) bool {
	q := u.Query()
	for _, marker := range redirectMarkers {
		if q.Has(marker) {
			return true
		}
	}
	return false
}

// stripParams issues a history replacement to the same location with the
// OAuth parameters removed.
func (r *Resolver) stripParams(current *url.URL) {
	clean := *current
	q := clean.Query()
	for _, p := range append(append([]string{}, redirectMarkers...), auxParams...) {
		q.Del(p)
	}
	clean.RawQuery = q.Encode()

	target := clean.Path
	if clean.RawQuery != "" {
		target += "?" + clean.RawQuery
	}
	r.nav.Replace(target)
}

// classify folds provider SDK errors into the taxonomy. Providers report
// structured codes as error strings (e.g. "auth/popup-blocked"), so a
// substring match backs up the errors.Is check.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrRedirectCancelled), errors.Is(err, domain.ErrPopupBlocked):
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "cancel"):
		return domain.ErrRedirectCancelled
	case strings.Contains(msg, "popup"):
		return domain.ErrPopupBlocked
	case strings.Contains(msg, "network"):
		return domain.ErrNetworkUnavailable
	default:
		return err
	}
}

func (r *Resolver) audit(ev *domain.AuditEvent) {
	fields := []zap.Field{
		zap.String("event", string(ev.EventType)),
		zap.Bool("success", ev.Success),
	}
	if ev.UserID != "" {
		fields = append(fields, zap.String("user_id", ev.UserID))
	}
	if ev.ErrorMsg != "" {
		fields = append(fields, zap.String("error", ev.ErrorMsg))
	}
	if ev.Success {
		r.logger.Info("oauth event", fields...)
	} else {
		r.logger.Warn("oauth event", fields...)
	}
}
