package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/metrics"
	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/repo"
)

type TallyService struct {
	ballots *repo.BallotRepo
}

func NewTallyService(ballots *repo.BallotRepo) *TallyService {
	return &TallyService{ballots: ballots}
}

// Results computes the ordered tally from one consistent ledger snapshot.
func (s *TallyService) Results(ctx context.Context) (*model.Results, error) {
	start := time.Now()
	snap, err := s.ballots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res, err := computeTally(snap)
	if err != nil {
		logutil.GetLogger(ctx).Error("tally does not match ledger", zap.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.TallyDuration.Observe(elapsed.Seconds())
	logutil.GetLogger(ctx).Debug("tally computed",
		zap.Int64("total_votes", res.TotalVotes), zap.Duration("cost", elapsed))
	return res, nil
}

func computeTally(snap *model.LedgerSnapshot) (*model.Results, error) {
	var total int64
	for _, n := range snap.Counts {
		total += n
	}
	if total != snap.TotalBallots {
		return nil, fmt.Errorf("%w: counted %d ballots, ledger holds %d", appErr.ErrInternal, total, snap.TotalBallots)
	}
	entries := make([]model.TallyEntry, 0, len(snap.Candidates))
	for _, c := range snap.Candidates {
		count := snap.Counts[c.ID]
		if c.Withdrawn && count == 0 {
			continue
		}
		entries = append(entries, model.TallyEntry{
			CandidateID: c.ID,
			Name:        c.Name,
			Party:       c.Party,
			VoteCount:   count,
			Percentage:  percentage(count, total),
			Withdrawn:   c.Withdrawn,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].VoteCount != entries[j].VoteCount {
			return entries[i].VoteCount > entries[j].VoteCount
		}
		return entries[i].CandidateID < entries[j].CandidateID
	})
	return &model.Results{
		Results:     entries,
		TotalVotes:  total,
		TotalVoters: snap.TotalVoters,
	}, nil
}

// percentage rounds to one decimal place; an empty ledger yields 0.
func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)*1000/float64(total)) / 10
}
