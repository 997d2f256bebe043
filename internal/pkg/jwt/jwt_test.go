package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	token, issued, err := GenerateToken(42, "a@x.com", true, secret, time.Hour, now)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := ParseToken(token, secret, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.VoterID)
	require.Equal(t, "a@x.com", claims.Email)
	require.True(t, claims.IsAdmin)
	require.Equal(t, issued.ID, claims.ID)
}

func TestParseExpired(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	token, _, err := GenerateToken(1, "a@x.com", false, secret, time.Minute, now)
	require.NoError(t, err)

	_, err = ParseToken(token, secret, now.Add(2*time.Minute))
	require.ErrorIs(t, err, ErrExpired)
}

func TestParseWrongSecret(t *testing.T) {
	now := time.Now()
	token, _, err := GenerateToken(1, "a@x.com", false, []byte("one"), time.Hour, now)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("two"), now)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = ParseToken("garbage", []byte("one"), now)
	require.ErrorIs(t, err, ErrInvalid)
}
