package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
)

// ClientImpl implements domain.AuthAPI against the Scantyx auth REST surface.
// It is a pure network boundary: no session state lives here. The refresh
// credential is an HTTP-only cookie held by the client's cookie jar.
type ClientImpl struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// authPayload mirrors the backend's login/signup/refresh response body.
type authPayload struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// verifyPayload mirrors the backend's verify response body.
type verifyPayload struct {
	Valid bool         `json:"valid"`
	User  *domain.User `json:"user"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// NewClient creates an auth API client. timeout bounds every request; a
// deadline hit is reported as domain.ErrTimeout, distinguishable from a
// rejected request.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (domain.AuthAPI, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &ClientImpl{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		logger:  logger,
	}, nil
}

// Login implements domain.AuthAPI
func (c *ClientImpl) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &out); err != nil {
		return nil, err
	}
	return &domain.AuthResult{Token: out.Token, User: out.User}, nil
}

// Signup implements domain.AuthAPI
func (c *ClientImpl) Signup(ctx context.Context, req domain.SignupRequest) (*domain.AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body := map[string]string{
		"name":            req.Name,
		"email":           req.Email,
		"password":        req.Password,
		"passwordConfirm": req.PasswordConfirm,
	}
	var out authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, "", &out); err != nil {
		return nil, err
	}
	return &domain.AuthResult{Token: out.Token, User: out.User}, nil
}

// Refresh implements domain.AuthAPI. The server identifies the session via
// the HTTP-only refresh cookie in the jar; a rejection maps to
// domain.ErrRefreshFailed.
func (c *ClientImpl) Refresh(ctx context.Context) (*domain.AuthResult, error) {
	var out authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/refresh-token", nil, "", &out); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrForbidden) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRefreshFailed, err)
		}
		return nil, err
	}
	return &domain.AuthResult{Token: out.Token, User: out.User}, nil
}

// Verify implements domain.AuthAPI. A 401 maps to
// domain.ErrVerificationFailed so the controller can tell "token rejected"
// apart from transport trouble.
func (c *ClientImpl) Verify(ctx context.Context, token string) (*domain.VerifyResult, error) {
	var out verifyPayload
	if err := c.do(ctx, http.MethodGet, "/auth/verify", nil, token, &out); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %s", domain.ErrVerificationFailed, err)
		}
		return nil, err
	}
	return &domain.VerifyResult{Valid: out.Valid, User: out.User}, nil
}

func (c *ClientImpl) do(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.classifyStatus(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: malformed response body", domain.ErrServer)
		}
	}
	return nil
}

// classifyTransport maps transport-level failures into the taxonomy. Timeouts
// are kept distinct so the UI can show "try again" instead of "wrong
// credentials".
func (c *ClientImpl) classifyTransport(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", domain.ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s", domain.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return fmt.Errorf("%w: %s", domain.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %s", domain.ErrNetworkUnavailable, err)
	}
}

func (c *ClientImpl) classifyStatus(resp *http.Response) error {
	var payload errorPayload
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	c.logger.Debug("auth api rejected request",
		zap.Int("status", resp.StatusCode), zap.String("message", msg))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, msg)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrServer, msg)
	default:
		return fmt.Errorf("%w: unexpected status %d: %s", domain.ErrServer, resp.StatusCode, msg)
	}
}
