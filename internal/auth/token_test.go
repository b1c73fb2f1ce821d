package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := m.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	issued := time.Now()
	m.now = func() time.Time { return issued }
	token, err := m.Issue("user-123")
	require.NoError(t, err)

	// Still valid just before the TTL runs out.
	m.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = m.Verify(token)
	assert.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	for _, token := range []string{"", "not.a.token", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := m.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenManager("another-secret-another-secret-42", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenManagerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenManager(testSecret, 0)
	assert.Error(t, err)
}
