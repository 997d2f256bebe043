package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/metrics"
	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/timeutil"
	"github.com/xxxsen/evoting/internal/repo"
)

type BallotService struct {
	ballots *repo.BallotRepo
	now     func() time.Time
}

func NewBallotService(ballots *repo.BallotRepo) *BallotService {
	return &BallotService{ballots: ballots, now: time.Now}
}

// Cast records the voter's single ballot. Preconditions are checked in order:
// verified, not yet voted, candidate exists.
func (s *BallotService) Cast(ctx context.Context, voterID, candidateID int64) (*model.Ballot, error) {
	ballot, err := s.ballots.Cast(ctx, voterID, candidateID, timeutil.Clock(s.now)().Unix())
	if err != nil {
		code := appErr.As(err).Code
		metrics.BallotsRejected.WithLabelValues(code).Inc()
		logutil.GetLogger(ctx).Info("ballot rejected",
			zap.Int64("voter_id", voterID), zap.Int64("candidate_id", candidateID), zap.String("reason", code))
		return nil, err
	}
	metrics.BallotsCast.Inc()
	logutil.GetLogger(ctx).Info("ballot cast",
		zap.Int64("voter_id", voterID), zap.Int64("candidate_id", candidateID))
	return ballot, nil
}

func (s *BallotService) CountFor(ctx context.Context, candidateID int64) (int64, error) {
	return s.ballots.CountFor(ctx, candidateID)
}

func (s *BallotService) Total(ctx context.Context) (int64, error) {
	return s.ballots.Total(ctx)
}
