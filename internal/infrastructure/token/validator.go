package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
)

// ValidatorImpl implements domain.TokenValidator. It only inspects the expiry
// claim; signature verification is the backend's job (the client does not
// hold the signing secret).
type ValidatorImpl struct {
	logger *zap.Logger
}

// NewValidator creates a new token validator
func NewValidator(logger *zap.Logger) domain.TokenValidator {
	return &ValidatorImpl{logger: logger}
}

// IsExpired implements domain.TokenValidator. Fail-closed: any token that
// cannot be decoded, or that carries no expiry claim, is reported expired.
func (v *ValidatorImpl) IsExpired(tokenString string) bool {
	if tokenString == "" {
		return true
	}

	parser := jwt.NewParser()
	tok, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		v.logger.Debug("token decode failed, treating as expired", zap.Error(err))
		return true
	}

	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		v.logger.Debug("token has no usable expiry claim, treating as expired")
		return true
	}

	return exp.Before(time.Now())
}
