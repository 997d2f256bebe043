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

// otpColumns returns a fresh slice; gendry rewrites the fields it is given.
func otpColumns() []string {
	return []string{"id", "voter_id", "code_hash", "state", "attempts", "issued_at", "expires_at", "consumed_at"}
}

type OTPRepo struct {
	db *DB
}

func NewOTPRepo(db *DB) *OTPRepo {
	return &OTPRepo{db: db}
}

// Issue stores code as the only active code of its voter. Earlier active codes
// are superseded in the same transaction, so at most one code can ever verify.
// A code issued less than cooldown seconds ago rejects the call with ErrCooldown.
func (r *OTPRepo) Issue(ctx context.Context, code *model.OTPCode, cooldown int64) error {
	return r.db.WithTx(ctx, func(ctx context.Context, q Querier) error {
		voter, err := lockVoter(ctx, r.db, q, code.VoterID)
		if err != nil {
			return err
		}
		if voter.Verified {
			return appErr.ErrAlreadyVerified
		}
		latest, err := latestCode(ctx, r.db, q, code.VoterID, "")
		if err != nil && !errors.Is(err, appErr.ErrNotFound) {
			return err
		}
		if latest != nil && code.IssuedAt < latest.IssuedAt+cooldown {
			return appErr.ErrCooldown
		}
		if _, err := r.db.update(ctx, q, "otp_codes",
			map[string]interface{}{"voter_id": code.VoterID, "state": int(model.OTPActive)},
			map[string]interface{}{"state": int(model.OTPSuperseded)}); err != nil {
			return err
		}
		data := map[string]interface{}{
			"id":          code.ID,
			"voter_id":    code.VoterID,
			"code_hash":   code.CodeHash,
			"state":       int(model.OTPActive),
			"attempts":    0,
			"issued_at":   code.IssuedAt,
			"expires_at":  code.ExpiresAt,
			"consumed_at": 0,
		}
		sqlStr, args, err := builder.BuildInsert("otp_codes", []map[string]interface{}{data})
		if err != nil {
			return err
		}
		sqlStr, args = r.db.finalize(sqlStr, args)
		if _, err := q.ExecContext(ctx, sqlStr, args...); err != nil {
			if dbutil.IsConflict(err) {
				return appErr.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (r *OTPRepo) Latest(ctx context.Context, voterID int64) (*model.OTPCode, error) {
	var code *model.OTPCode
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		code, err = latestCode(ctx, r.db, q, voterID, "")
		return err
	})
	return code, err
}

// Consume redeems codeID and marks the voter verified in one transaction. The
// code must still be the voter's latest, active and unexpired at now.
func (r *OTPRepo) Consume(ctx context.Context, voterID int64, codeID string, now int64) error {
	return r.db.WithTx(ctx, func(ctx context.Context, q Querier) error {
		if _, err := lockVoter(ctx, r.db, q, voterID); err != nil {
			return err
		}
		latest, err := latestCode(ctx, r.db, q, voterID, "")
		if err != nil {
			if errors.Is(err, appErr.ErrNotFound) {
				return appErr.ErrInvalidCode
			}
			return err
		}
		if latest.ID != codeID {
			return appErr.ErrInvalidCode
		}
		if err := latest.Check(now); err != nil {
			return err
		}
		affected, err := r.db.update(ctx, q, "otp_codes",
			map[string]interface{}{"id": codeID, "state": int(model.OTPActive)},
			map[string]interface{}{"state": int(model.OTPConsumed), "consumed_at": now})
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErr.ErrCodeConsumed
		}
		return setVerified(ctx, r.db, q, voterID, now)
	})
}

// RecordFailure counts a wrong guess against codeID. Reaching maxAttempts burns
// the code; the returned flag reports whether that happened.
func (r *OTPRepo) RecordFailure(ctx context.Context, codeID string, maxAttempts int) (bool, error) {
	var burned bool
	err := r.db.WithTx(ctx, func(ctx context.Context, q Querier) error {
		code, err := getCode(ctx, r.db, q, map[string]interface{}{"id": codeID}, r.db.forUpdate())
		if err != nil {
			return err
		}
		if code.State != model.OTPActive {
			burned = code.State == model.OTPBurned
			return nil
		}
		attempts := code.Attempts + 1
		update := map[string]interface{}{"attempts": attempts}
		if attempts >= maxAttempts {
			update["state"] = int(model.OTPBurned)
			burned = true
		}
		_, err = r.db.update(ctx, q, "otp_codes", map[string]interface{}{"id": codeID}, update)
		return err
	})
	return burned, err
}

// DeleteExpiredBefore drops codes whose expiry lies before cutoff.
func (r *OTPRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	var n int64
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		n, err = r.db.delete(ctx, q, "otp_codes", map[string]interface{}{"expires_at <": cutoff})
		return err
	})
	return n, err
}

func latestCode(ctx context.Context, d *DB, q Querier, voterID int64, lock string) (*model.OTPCode, error) {
	where := map[string]interface{}{
		"voter_id": voterID,
		"_orderby": "issued_at desc, state asc",
		"_limit":   []uint{0, 1},
	}
	return getCode(ctx, d, q, where, lock)
}

func getCode(ctx context.Context, d *DB, q Querier, where map[string]interface{}, lock string) (*model.OTPCode, error) {
	sqlStr, args, err := builder.BuildSelect("otp_codes", where, otpColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = d.finalize(sqlStr+lock, args)
	var code model.OTPCode
	var state int
	err = q.QueryRowContext(ctx, sqlStr, args...).Scan(
		&code.ID, &code.VoterID, &code.CodeHash, &state, &code.Attempts,
		&code.IssuedAt, &code.ExpiresAt, &code.ConsumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	code.State = model.OTPState(state)
	return &code, nil
}
