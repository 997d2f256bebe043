package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/evoting/internal/model"
	"github.com/xxxsen/evoting/internal/pkg/dbutil"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
)

// voterColumns returns a fresh slice; gendry rewrites the fields it is given.
func voterColumns() []string {
	return []string{"id", "email", "password_hash", "verified", "is_admin", "has_voted", "ctime", "mtime"}
}

type VoterRepo struct {
	db *DB
}

func NewVoterRepo(db *DB) *VoterRepo {
	return &VoterRepo{db: db}
}

func (r *VoterRepo) Create(ctx context.Context, voter *model.Voter) error {
	data := map[string]interface{}{
		"email":         voter.Email,
		"password_hash": voter.PasswordHash,
		"verified":      dbutil.BoolInt(voter.Verified),
		"is_admin":      dbutil.BoolInt(voter.IsAdmin),
		"has_voted":     0,
		"ctime":         voter.Ctime,
		"mtime":         voter.Mtime,
	}
	return r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		id, err := r.db.insert(ctx, q, "voters", data)
		if err != nil {
			if dbutil.IsConflict(err) {
				return appErr.ErrDuplicateEmail
			}
			return err
		}
		voter.ID = id
		voter.HasVoted = false
		return nil
	})
}

func (r *VoterRepo) GetByEmail(ctx context.Context, email string) (*model.Voter, error) {
	var voter *model.Voter
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		voter, err = getVoter(ctx, r.db, q, map[string]interface{}{"email": email}, "")
		return err
	})
	return voter, err
}

func (r *VoterRepo) GetByID(ctx context.Context, id int64) (*model.Voter, error) {
	var voter *model.Voter
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		voter, err = getVoter(ctx, r.db, q, map[string]interface{}{"id": id}, "")
		return err
	})
	return voter, err
}

// SetAdmin grants or revokes the admin flag. Admins are always verified.
func (r *VoterRepo) SetAdmin(ctx context.Context, id int64, isAdmin bool, mtime int64) error {
	return r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		update := map[string]interface{}{"is_admin": dbutil.BoolInt(isAdmin), "mtime": mtime}
		if isAdmin {
			update["verified"] = 1
		}
		affected, err := r.db.update(ctx, q, "voters", map[string]interface{}{"id": id}, update)
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErr.ErrVoterNotFound
		}
		return nil
	})
}

func (r *VoterRepo) HasAdmin(ctx context.Context) (bool, error) {
	var n int64
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		n, err = r.db.count(ctx, q, "voters", map[string]interface{}{"is_admin": 1})
		return err
	})
	return n > 0, err
}

// CountVerified is the electorate size used as the turnout denominator.
func (r *VoterRepo) CountVerified(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		n, err = countVerified(ctx, r.db, q)
		return err
	})
	return n, err
}

func getVoter(ctx context.Context, d *DB, q Querier, where map[string]interface{}, lock string) (*model.Voter, error) {
	sqlStr, args, err := builder.BuildSelect("voters", where, voterColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = d.finalize(sqlStr+lock, args)
	var voter model.Voter
	err = q.QueryRowContext(ctx, sqlStr, args...).Scan(
		&voter.ID, &voter.Email, &voter.PasswordHash, &voter.Verified,
		&voter.IsAdmin, &voter.HasVoted, &voter.Ctime, &voter.Mtime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrVoterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &voter, nil
}

func lockVoter(ctx context.Context, d *DB, q Querier, id int64) (*model.Voter, error) {
	return getVoter(ctx, d, q, map[string]interface{}{"id": id}, d.forUpdate())
}

func setVerified(ctx context.Context, d *DB, q Querier, id int64, mtime int64) error {
	affected, err := d.update(ctx, q, "voters", map[string]interface{}{"id": id},
		map[string]interface{}{"verified": 1, "mtime": mtime})
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrVoterNotFound
	}
	return nil
}

// markVoted flips has_voted only from false to true. It runs solely inside the
// ballot transaction, zero affected rows means another cast got there first.
func markVoted(ctx context.Context, d *DB, q Querier, id int64, mtime int64) error {
	affected, err := d.update(ctx, q, "voters",
		map[string]interface{}{"id": id, "has_voted": 0},
		map[string]interface{}{"has_voted": 1, "mtime": mtime})
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrAlreadyVoted
	}
	return nil
}

func countVerified(ctx context.Context, d *DB, q Querier) (int64, error) {
	return d.count(ctx, q, "voters", map[string]interface{}{"verified": 1})
}
