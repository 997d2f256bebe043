package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRevoke(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	s := NewMemoryStore(16, time.Hour)
	s.now = func() time.Time { return now }

	revoked, err := s.IsRevoked(ctx, "a")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "a", 10*time.Minute))
	revoked, err = s.IsRevoked(ctx, "a")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "b")
	require.NoError(t, err)
	require.False(t, revoked)

	now = now.Add(10 * time.Minute)
	revoked, err = s.IsRevoked(ctx, "a")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryStoreIgnoresEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, time.Hour)
	require.NoError(t, s.Revoke(ctx, "", time.Minute))
	require.NoError(t, s.Revoke(ctx, "x", 0))
	revoked, err := s.IsRevoked(ctx, "x")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryStoreNeverEvictsLiveRevocation(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	s := NewMemoryStore(2, time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Revoke(ctx, "a", 30*time.Minute))
	require.NoError(t, s.Revoke(ctx, "b", 10*time.Minute))
	require.ErrorIs(t, s.Revoke(ctx, "c", 10*time.Minute), ErrFull)

	for _, jti := range []string{"a", "b"} {
		revoked, err := s.IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.True(t, revoked, jti)
	}
	require.NoError(t, s.Revoke(ctx, "a", 20*time.Minute))

	now = now.Add(10 * time.Minute)
	require.NoError(t, s.Revoke(ctx, "c", 10*time.Minute))
	for _, jti := range []string{"a", "c"} {
		revoked, err := s.IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.True(t, revoked, jti)
	}
	revoked, err := s.IsRevoked(ctx, "b")
	require.NoError(t, err)
	require.False(t, revoked)
}
