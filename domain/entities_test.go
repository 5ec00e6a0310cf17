package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalIdentity_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		identity ExternalIdentity
		want     User
	}{
		{
			name: "full profile",
			identity: ExternalIdentity{
				UID:           "g-123",
				Email:         "jane@example.com",
				DisplayName:   "Jane Doe",
				EmailVerified: true,
				PhotoURL:      "https://img.example.com/jane.png",
				ProviderID:    "google.com",
			},
			want: User{
				ID:            "g-123",
				Email:         "jane@example.com",
				Name:          "Jane Doe",
				Role:          "user",
				EmailVerified: true,
				AvatarURL:     "https://img.example.com/jane.png",
				Provider:      "google.com",
			},
		},
		{
			name: "missing display name falls back to email local part",
			identity: ExternalIdentity{
				UID:        "g-456",
				Email:      "jdoe@example.com",
				ProviderID: "google.com",
			},
			want: User{
				ID:       "g-456",
				Email:    "jdoe@example.com",
				Name:     "jdoe",
				Role:     "user",
				Provider: "google.com",
			},
		},
		{
			name: "email without at sign used verbatim",
			identity: ExternalIdentity{
				UID:   "g-789",
				Email: "opaque-handle",
			},
			want: User{
				ID:    "g-789",
				Email: "opaque-handle",
				Name:  "opaque-handle",
				Role:  "user",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.identity.Normalize()
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestUserPatch_Apply(t *testing.T) {
	base := User{ID: "u1", Email: "a@b.com", Name: "A", Role: "user"}

	name := "New Name"
	verified := true
	got := UserPatch{Name: &name, EmailVerified: &verified}.Apply(base)

	assert.Equal(t, "New Name", got.Name)
	assert.True(t, got.EmailVerified)
	// untouched fields survive
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "user", got.Role)
	// original is not mutated
	assert.Equal(t, "A", base.Name)
}

func TestSessionState_Loading(t *testing.T) {
	assert.True(t, StateUninitialized.Loading())
	assert.True(t, StateChecking.Loading())
	assert.True(t, StateRefreshing.Loading())
	assert.False(t, StateAuthenticated.Loading())
	assert.False(t, StateAnonymous.Loading())
}

func TestSignupRequest_Validate(t *testing.T) {
	valid := SignupRequest{Name: "A", Email: "a@b.com", Password: "secret", PasswordConfirm: "secret"}
	assert.NoError(t, valid.Validate())

	mismatch := valid
	mismatch.PasswordConfirm = "other"
	assert.ErrorIs(t, mismatch.Validate(), ErrValidation)

	missing := SignupRequest{Email: "a@b.com", Password: "secret", PasswordConfirm: "secret"}
	assert.ErrorIs(t, missing.Validate(), ErrValidation)
}
