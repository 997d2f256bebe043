package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/evoting/internal/model"
	"github.com/xxxsen/evoting/internal/pkg/dbutil"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
)

type BallotRepo struct {
	db *DB
}

func NewBallotRepo(db *DB) *BallotRepo {
	return &BallotRepo{db: db}
}

// Cast records one ballot for voterID and flips the voter's has_voted flag in
// the same transaction. Either both happen or neither does.
//
// Lock order is candidate (shared) then voter (exclusive), the same order the
// candidate delete path uses, so a concurrent delete cannot strand a ballot.
func (r *BallotRepo) Cast(ctx context.Context, voterID, candidateID int64, now int64) (*model.Ballot, error) {
	ballot := &model.Ballot{VoterID: voterID, CandidateID: candidateID, Ctime: now}
	err := r.db.WithTx(ctx, func(ctx context.Context, q Querier) error {
		_, candErr := getCandidate(ctx, r.db, q, candidateID, r.db.forShare())
		if candErr != nil && !errors.Is(candErr, appErr.ErrUnknownCandidate) {
			return candErr
		}
		voter, err := lockVoter(ctx, r.db, q, voterID)
		if err != nil {
			return err
		}
		if !voter.Verified {
			return appErr.ErrNotVerified
		}
		if voter.HasVoted {
			return appErr.ErrAlreadyVoted
		}
		if candErr != nil {
			return candErr
		}
		id, err := r.db.insert(ctx, q, "ballots", map[string]interface{}{
			"voter_id":     voterID,
			"candidate_id": candidateID,
			"ctime":        now,
		})
		if err != nil {
			if dbutil.IsConflict(err) {
				return appErr.ErrAlreadyVoted
			}
			return err
		}
		ballot.ID = id
		return markVoted(ctx, r.db, q, voterID, now)
	})
	if err != nil {
		return nil, err
	}
	return ballot, nil
}

func (r *BallotRepo) GetByVoter(ctx context.Context, voterID int64) (*model.Ballot, error) {
	var ballot model.Ballot
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		sqlStr, args, err := builder.BuildSelect("ballots", map[string]interface{}{"voter_id": voterID},
			[]string{"id", "voter_id", "candidate_id", "ctime"})
		if err != nil {
			return err
		}
		sqlStr, args = r.db.finalize(sqlStr, args)
		err = q.QueryRowContext(ctx, sqlStr, args...).Scan(&ballot.ID, &ballot.VoterID, &ballot.CandidateID, &ballot.Ctime)
		if errors.Is(err, sql.ErrNoRows) {
			return appErr.ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ballot, nil
}

func (r *BallotRepo) CountFor(ctx context.Context, candidateID int64) (int64, error) {
	var n int64
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		n, err = r.db.count(ctx, q, "ballots", map[string]interface{}{"candidate_id": candidateID})
		return err
	})
	return n, err
}

func (r *BallotRepo) Total(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		n, err = r.db.count(ctx, q, "ballots", nil)
		return err
	})
	return n, err
}

// Snapshot reads the roster, per-candidate counts, ballot total and electorate
// size from a single transaction so they agree with each other.
func (r *BallotRepo) Snapshot(ctx context.Context) (*model.LedgerSnapshot, error) {
	snap := &model.LedgerSnapshot{Counts: make(map[int64]int64)}
	err := r.db.WithReadTx(ctx, func(ctx context.Context, q Querier) error {
		var err error
		if snap.Candidates, err = listCandidates(ctx, r.db, q, true); err != nil {
			return err
		}
		if err := groupCounts(ctx, r.db, q, snap.Counts); err != nil {
			return err
		}
		if snap.TotalBallots, err = r.db.count(ctx, q, "ballots", nil); err != nil {
			return err
		}
		snap.TotalVoters, err = countVerified(ctx, r.db, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func groupCounts(ctx context.Context, d *DB, q Querier, out map[int64]int64) error {
	sqlStr, args, err := builder.BuildSelect("ballots", map[string]interface{}{"_groupby": "candidate_id"},
		[]string{"candidate_id", "count(1)"})
	if err != nil {
		return err
	}
	sqlStr, args = d.finalize(sqlStr, args)
	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return fmt.Errorf("scan count: %w", err)
		}
		out[id] = n
	}
	return rows.Err()
}

// purgeBallots deletes every ballot for candidateID and clears has_voted for
// the voters who cast them. Callers hold the candidate row lock.
func purgeBallots(ctx context.Context, d *DB, q Querier, candidateID int64, now int64) (int64, error) {
	sqlStr, args := d.finalize(
		"UPDATE voters SET has_voted = ?, mtime = ? WHERE id IN (SELECT voter_id FROM ballots WHERE candidate_id = ?)",
		[]interface{}{0, now, candidateID},
	)
	if _, err := q.ExecContext(ctx, sqlStr, args...); err != nil {
		return 0, err
	}
	return d.delete(ctx, q, "ballots", map[string]interface{}{"candidate_id": candidateID})
}
