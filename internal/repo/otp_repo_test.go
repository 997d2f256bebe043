package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/repo"
	"github.com/xxxsen/evoting/internal/testutil"
)

func newVoter(t *testing.T, voters *repo.VoterRepo, email string) *model.Voter {
	t.Helper()
	v := &model.Voter{Email: email, PasswordHash: "x", Ctime: 100, Mtime: 100}
	require.NoError(t, voters.Create(context.Background(), v))
	return v
}

func code(id string, voterID, issuedAt int64) *model.OTPCode {
	return &model.OTPCode{ID: id, VoterID: voterID, CodeHash: "h", IssuedAt: issuedAt, ExpiresAt: issuedAt + 600}
}

func TestOTPIssueSupersedesAndCooldown(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	voters := repo.NewVoterRepo(db)
	codes := repo.NewOTPRepo(db)
	v := newVoter(t, voters, "a@x.com")

	_, err := codes.Latest(ctx, v.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, codes.Issue(ctx, code("c1", v.ID, 1000), 60))
	require.ErrorIs(t, codes.Issue(ctx, code("c2", v.ID, 1030), 60), appErr.ErrCooldown)
	require.NoError(t, codes.Issue(ctx, code("c3", v.ID, 1060), 60))

	latest, err := codes.Latest(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, "c3", latest.ID)
	require.Equal(t, model.OTPActive, latest.State)

	require.ErrorIs(t, codes.Consume(ctx, v.ID, "c1", 1070), appErr.ErrInvalidCode)
	require.NoError(t, codes.Consume(ctx, v.ID, "c3", 1070))
	require.ErrorIs(t, codes.Consume(ctx, v.ID, "c3", 1071), appErr.ErrCodeConsumed)

	stored, err := voters.GetByID(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, stored.Verified)

	require.ErrorIs(t, codes.Issue(ctx, code("c4", v.ID, 2000), 60), appErr.ErrAlreadyVerified)
}

func TestOTPConsumeRejectsExpired(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	voters := repo.NewVoterRepo(db)
	codes := repo.NewOTPRepo(db)
	v := newVoter(t, voters, "b@x.com")

	require.NoError(t, codes.Issue(ctx, code("c1", v.ID, 1000), 60))
	require.ErrorIs(t, codes.Consume(ctx, v.ID, "c1", 1600), appErr.ErrCodeExpired)

	stored, err := voters.GetByID(ctx, v.ID)
	require.NoError(t, err)
	require.False(t, stored.Verified)
}

func TestOTPRecordFailureBurns(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	codes := repo.NewOTPRepo(db)
	v := newVoter(t, repo.NewVoterRepo(db), "c@x.com")
	require.NoError(t, codes.Issue(ctx, code("c1", v.ID, 1000), 60))

	for i := 0; i < 2; i++ {
		burned, err := codes.RecordFailure(ctx, "c1", 3)
		require.NoError(t, err)
		require.False(t, burned)
	}
	burned, err := codes.RecordFailure(ctx, "c1", 3)
	require.NoError(t, err)
	require.True(t, burned)

	latest, err := codes.Latest(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, model.OTPBurned, latest.State)
	require.Equal(t, 3, latest.Attempts)
	require.ErrorIs(t, codes.Consume(ctx, v.ID, "c1", 1010), appErr.ErrCodeAttempts)
}

func TestOTPDeleteExpiredBefore(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	codes := repo.NewOTPRepo(db)
	v := newVoter(t, repo.NewVoterRepo(db), "d@x.com")
	w := newVoter(t, repo.NewVoterRepo(db), "e@x.com")
	require.NoError(t, codes.Issue(ctx, code("old", v.ID, 1000), 60))
	require.NoError(t, codes.Issue(ctx, code("new", w.ID, 5000), 60))

	n, err := codes.DeleteExpiredBefore(ctx, 2000)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	_, err = codes.Latest(ctx, v.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = codes.Latest(ctx, w.ID)
	require.NoError(t, err)
}

func newVoterErr(voters *repo.VoterRepo, email string) error {
	return voters.Create(context.Background(), &model.Voter{Email: email, PasswordHash: "x", Ctime: 100, Mtime: 100})
}
