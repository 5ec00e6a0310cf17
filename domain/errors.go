package domain

import "errors"

// Credential and request errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrRateLimited        = errors.New("rate limited")
	ErrServer             = errors.New("server error")
)

// Transport errors
var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("request timed out")
)

// Session lifecycle errors
var (
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrVerificationFailed = errors.New("token verification failed")
	ErrCheckInFlight      = errors.New("auth check already in flight")
	ErrSessionSuperseded  = errors.New("session superseded by sign-out")
)

// OAuth redirect errors
var (
	ErrRedirectCancelled = errors.New("sign-in was cancelled")
	ErrPopupBlocked      = errors.New("sign-in popup was blocked")
	ErrNoRedirectResult  = errors.New("no redirect result available")
)

// UserMessage translates an error into the single user-facing string the UI
// layer shows. Transient failures get a retry-oriented message, credential
// failures an actionable one. Unknown errors collapse into a generic notice
// rather than leaking internals.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password. Please check your credentials and try again."
	case errors.Is(err, ErrForbidden):
		return "Your account is not allowed to sign in. Contact support if this seems wrong."
	case errors.Is(err, ErrValidation):
		return "Please fill in all required fields and make sure the passwords match."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts. Please wait a moment and try again."
	case errors.Is(err, ErrTimeout):
		return "The request timed out. Please try again."
	case errors.Is(err, ErrNetworkUnavailable), errors.Is(err, ErrServer):
		return "Something went wrong on our end. Please try again."
	case errors.Is(err, ErrRefreshFailed), errors.Is(err, ErrVerificationFailed):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrRedirectCancelled):
		return "Sign-in was cancelled."
	case errors.Is(err, ErrPopupBlocked):
		return "Sign-in popup was blocked. Please allow popups for this site and try again."
	default:
		return "Authentication failed. Please try again."
	}
}
