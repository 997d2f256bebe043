package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
)

func TestCandidateCRUD(t *testing.T) {
	env := newTestEnv(t, model.DeleteDisallow)
	ctx := context.Background()

	c, err := env.candidates.Create(ctx, CandidateInput{
		Name:        " Alice ",
		Party:       "Blue",
		Description: "Runs on **clean** water <script>alert(1)</script>",
	})
	require.NoError(t, err)
	require.Equal(t, "Alice", c.Name)
	require.Equal(t, "https://img.example/default.png", c.ImageURL)
	require.Contains(t, c.DescriptionHTML, "<strong>clean</strong>")
	require.NotContains(t, c.DescriptionHTML, "<script>")

	got, err := env.candidates.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)

	updated, err := env.candidates.Update(ctx, c.ID, CandidateInput{
		Name:     "Alice B.",
		Party:    "Teal",
		ImageURL: "https://img.example/alice.png",
	})
	require.NoError(t, err)
	require.Equal(t, "Teal", updated.Party)
	require.Equal(t, "https://img.example/alice.png", updated.ImageURL)

	_, err = env.candidates.Update(ctx, 9999, CandidateInput{Name: "X", Party: "Y"})
	require.ErrorIs(t, err, appErr.ErrUnknownCandidate)
	_, err = env.candidates.Get(ctx, 9999)
	require.ErrorIs(t, err, appErr.ErrUnknownCandidate)

	list, err := env.candidates.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Alice B.", list[0].Name)
}

func TestCandidateValidation(t *testing.T) {
	env := newTestEnv(t, model.DeleteDisallow)
	ctx := context.Background()

	_, err := env.candidates.Create(ctx, CandidateInput{Name: "Alice"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Equal(t, "party is required", appErr.As(err).Msg)

	_, err = env.candidates.Create(ctx, CandidateInput{Name: "Alice", Party: "Blue", ImageURL: "not a url"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Equal(t, "image_url must be a valid url", appErr.As(err).Msg)
}

func TestDeleteCandidateWithoutVotes(t *testing.T) {
	env := newTestEnv(t, model.DeleteDisallow)
	ctx := context.Background()
	voter := env.seedVoters(t, 1)[0]
	keep := env.addCandidate(t, "Alice", "Blue")
	drop := env.addCandidate(t, "Bob", "Green")
	_, err := env.ballots.Cast(ctx, voter.ID, keep.ID)
	require.NoError(t, err)
	before, err := env.tally.Results(ctx)
	require.NoError(t, err)

	out, err := env.candidates.Delete(ctx, drop.ID)
	require.NoError(t, err)
	require.True(t, out.Removed)

	list, err := env.candidates.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, keep.ID, list[0].ID)

	after, err := env.tally.Results(ctx)
	require.NoError(t, err)
	require.Equal(t, before.TotalVotes, after.TotalVotes)
	require.Equal(t, before.Results[0], after.Results[0])

	_, err = env.candidates.Delete(ctx, drop.ID)
	require.ErrorIs(t, err, appErr.ErrUnknownCandidate)
}

func TestDeleteCandidateDisallowWithVotes(t *testing.T) {
	env := newTestEnv(t, model.DeleteDisallow)
	ctx := context.Background()
	voter := env.seedVoters(t, 1)[0]
	c := env.addCandidate(t, "Alice", "Blue")
	_, err := env.ballots.Cast(ctx, voter.ID, c.ID)
	require.NoError(t, err)

	_, err = env.candidates.Delete(ctx, c.ID)
	require.ErrorIs(t, err, appErr.ErrCandidateHasVotes)
	_, err = env.candidates.Get(ctx, c.ID)
	require.NoError(t, err)
}

func TestDeleteCandidateCascade(t *testing.T) {
	env := newTestEnv(t, model.DeleteCascadeVotes)
	ctx := context.Background()
	voters := env.seedVoters(t, 3)
	a := env.addCandidate(t, "Alice", "Blue")
	b := env.addCandidate(t, "Bob", "Green")
	_, err := env.ballots.Cast(ctx, voters[0].ID, a.ID)
	require.NoError(t, err)
	_, err = env.ballots.Cast(ctx, voters[1].ID, a.ID)
	require.NoError(t, err)
	_, err = env.ballots.Cast(ctx, voters[2].ID, b.ID)
	require.NoError(t, err)

	out, err := env.candidates.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, out.Removed)
	require.Equal(t, int64(2), out.BallotsPurged)

	for _, v := range voters[:2] {
		stored, err := env.voters.GetByID(ctx, v.ID)
		require.NoError(t, err)
		require.False(t, stored.HasVoted)
	}
	stored, err := env.voters.GetByID(ctx, voters[2].ID)
	require.NoError(t, err)
	require.True(t, stored.HasVoted)

	res, err := env.tally.Results(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.TotalVotes)
	require.Len(t, res.Results, 1)

	_, err = env.ballots.Cast(ctx, voters[0].ID, b.ID)
	require.NoError(t, err)
}

func TestDeleteCandidateRetainOrphaned(t *testing.T) {
	env := newTestEnv(t, model.DeleteRetainOrphaned)
	ctx := context.Background()
	voters := env.seedVoters(t, 2)
	a := env.addCandidate(t, "Alice", "Blue")
	b := env.addCandidate(t, "Bob", "Green")
	_, err := env.ballots.Cast(ctx, voters[0].ID, a.ID)
	require.NoError(t, err)

	out, err := env.candidates.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, out.Withdrawn)
	require.False(t, out.Removed)

	list, err := env.candidates.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, b.ID, list[0].ID)

	_, err = env.ballots.Cast(ctx, voters[1].ID, a.ID)
	require.ErrorIs(t, err, appErr.ErrUnknownCandidate)

	res, err := env.tally.Results(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.TotalVotes)
	require.Equal(t, a.ID, res.Results[0].CandidateID)
	require.True(t, res.Results[0].Withdrawn)
	require.Equal(t, 100.0, res.Results[0].Percentage)

	out, err = env.candidates.Delete(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, out.Removed)
}

func TestListWithCounts(t *testing.T) {
	env := newTestEnv(t, model.DeleteDisallow)
	ctx := context.Background()
	voters := env.seedVoters(t, 2)
	a := env.addCandidate(t, "Alice", "Blue")
	env.addCandidate(t, "Bob", "Green")
	for _, v := range voters {
		_, err := env.ballots.Cast(ctx, v.ID, a.ID)
		require.NoError(t, err)
	}

	list, err := env.candidates.ListWithCounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].VoteCount)
	require.Equal(t, int64(2), *list[0].VoteCount)
	require.Equal(t, int64(0), *list[1].VoteCount)
}
