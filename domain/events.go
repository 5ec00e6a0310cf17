package domain

import "time"

// AuditEventType defines the type of session audit event
type AuditEventType string

const (
	// Authentication events
	UserLoginEvent        AuditEventType = "USER_LOGIN"
	UserLoginFailureEvent AuditEventType = "USER_LOGIN_FAILED"
	UserSignupEvent       AuditEventType = "USER_SIGNUP"
	UserLogoutEvent       AuditEventType = "USER_LOGOUT"

	// Session lifecycle events
	SessionVerifiedEvent AuditEventType = "SESSION_VERIFIED"
	SessionRejectedEvent AuditEventType = "SESSION_REJECTED"
	TokenRefreshEvent    AuditEventType = "TOKEN_REFRESHED"
	TokenRefreshFailure  AuditEventType = "TOKEN_REFRESH_FAILED"

	// OAuth redirect events
	RedirectCompletedEvent AuditEventType = "OAUTH_REDIRECT_COMPLETED"
	RedirectFailureEvent   AuditEventType = "OAUTH_REDIRECT_FAILED"
)

// AuditEvent represents a session lifecycle event worth recording
type AuditEvent struct {
	EventType AuditEventType `json:"event_type"`
	UserID    string         `json:"user_id,omitempty"`
	Email     string         `json:"email,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	ErrorMsg  string         `json:"error_msg,omitempty"`
	Success   bool           `json:"success"`
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Success:   true,
	}
}

// WithError marks the event failed and records the cause
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithUser attaches the acting user
func (e *AuditEvent) WithUser(u *User) *AuditEvent {
	if u != nil {
		e.UserID = u.ID
		e.Email = u.Email
		e.Provider = u.Provider
	}
	return e
}
