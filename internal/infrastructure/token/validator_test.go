package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestValidator_IsExpired(t *testing.T) {
	v := NewValidator(zap.NewNop())

	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{
			name:    "empty token",
			token:   "",
			expired: true,
		},
		{
			name:    "garbage token",
			token:   "not-a-jwt",
			expired: true,
		},
		{
			name:    "structurally broken token",
			token:   "aaaa.bbbb",
			expired: true,
		},
		{
			name: "no expiry claim",
			token: signedToken(t, jwt.MapClaims{
				"sub": "u1",
			}),
			expired: true,
		},
		{
			name: "expired an hour ago",
			token: signedToken(t, jwt.MapClaims{
				"sub": "u1",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			expired: true,
		},
		{
			name: "valid for another hour",
			token: signedToken(t, jwt.MapClaims{
				"sub": "u1",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			expired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, v.IsExpired(tt.token))
		})
	}
}

func TestValidator_IsExpired_UnsignedTokenStillDecodes(t *testing.T) {
	// expiry inspection does not require a verifiable signature
	v := NewValidator(zap.NewNop())

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	assert.False(t, v.IsExpired(s))
}
