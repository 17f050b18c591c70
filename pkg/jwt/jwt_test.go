package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour, 15*time.Minute)
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, "asha@bitsathy.ac.in", "student")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "asha@bitsathy.ac.in", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, AccessToken, claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestPasswordResetTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour, 15*time.Minute)
	userID := uuid.New()

	token, err := svc.GeneratePasswordResetToken(userID, "asha@bitsathy.ac.in")
	require.NoError(t, err)

	claims, err := svc.ValidatePasswordResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, PasswordResetToken, claims.TokenType)
	assert.Empty(t, claims.Role)
}

func TestTokenTypeMismatchRejected(t *testing.T) {
	svc := NewService("test-secret", time.Hour, 15*time.Minute)
	userID := uuid.New()

	access, err := svc.GenerateAccessToken(userID, "asha@bitsathy.ac.in", "student")
	require.NoError(t, err)
	reset, err := svc.GeneratePasswordResetToken(userID, "asha@bitsathy.ac.in")
	require.NoError(t, err)

	// A reset token must never authenticate a request, and an access token
	// must never reset a password
	_, err = svc.ValidateAccessToken(reset)
	assert.Error(t, err)
	_, err = svc.ValidatePasswordResetToken(access)
	assert.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	issuer := NewService("secret-a", time.Hour, 15*time.Minute)
	verifier := NewService("secret-b", time.Hour, 15*time.Minute)

	token, err := issuer.GenerateAccessToken(uuid.New(), "asha@bitsathy.ac.in", "student")
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewService("test-secret", -time.Minute, 15*time.Minute)

	token, err := svc.GenerateAccessToken(uuid.New(), "asha@bitsathy.ac.in", "student")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := NewService("test-secret", time.Hour, 15*time.Minute)

	_, err := svc.ValidateAccessToken("not.a.token")
	assert.Error(t, err)
}
