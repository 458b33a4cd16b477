package accounts_test

import (
	"encoding/json"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"User@Example.COM", "user@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"already@example.com", "already@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, accounts.NormalizeEmail(tt.input))
	}
}

func TestUserSanitized(t *testing.T) {
	code := "abc123"
	user := &accounts.User{
		ID:               uuid.New(),
		Email:            "a@x.com",
		PasswordHash:     "$2a$14$something",
		Role:             accounts.RoleUser,
		VerificationCode: &code,
	}

	out := user.Sanitized()

	assert.Empty(t, out.PasswordHash)
	assert.Nil(t, out.VerificationCode)
	assert.Equal(t, user.Email, out.Email)

	// the original stays intact
	assert.Equal(t, "$2a$14$something", user.PasswordHash)
	assert.Equal(t, &code, user.VerificationCode)

	var nilUser *accounts.User
	assert.Nil(t, nilUser.Sanitized())
}

func TestUserJSONNeverLeaksSecrets(t *testing.T) {
	code := "abc123"
	user := &accounts.User{
		ID:               uuid.New(),
		Email:            "a@x.com",
		PasswordHash:     "$2a$14$something",
		VerificationCode: &code,
		LoginAttempts:    3,
	}

	encoded, err := json.Marshal(user)
	assert.NoError(t, err)

	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.NotContains(t, decoded, "password_hash")
	assert.NotContains(t, decoded, "verification_code")
	assert.NotContains(t, decoded, "login_attempts")
	assert.Equal(t, "a@x.com", decoded["email"])
}
