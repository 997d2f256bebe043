package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
)

// candidateColumns returns a fresh slice; gendry rewrites the fields it is given.
func candidateColumns() []string {
	return []string{"id", "name", "party", "description", "image_url", "withdrawn", "ctime", "mtime"}
}

type CandidateRepo struct {
	db *DB
}

func NewCandidateRepo(db *DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

func (r *CandidateRepo) Create(ctx context.Context, c *model.Candidate) error {
	data := map[string]interface{}{
		"name":        c.Name,
		"party":       c.Party,
		"description": c.Description,
		"image_url":   c.ImageURL,
		"withdrawn":   0,
		"ctime":       c.Ctime,
		"mtime":       c.Mtime,
	}
	return r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		id, err := r.db.insert(ctx, q, "candidates", data)
		if err != nil {
			return err
		}
		c.ID = id
		c.Withdrawn = false
		return nil
	})
}

// Update rewrites the editable fields of an active candidate.
func (r *CandidateRepo) Update(ctx context.Context, c *model.Candidate) error {
	where := map[string]interface{}{"id": c.ID, "withdrawn": 0}
	update := map[string]interface{}{
		"name":        c.Name,
		"party":       c.Party,
		"description": c.Description,
		"image_url":   c.ImageURL,
		"mtime":       c.Mtime,
	}
	return r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		affected, err := r.db.update(ctx, q, "candidates", where, update)
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErr.ErrUnknownCandidate
		}
		return nil
	})
}

// GetByID returns an active candidate. Withdrawn entries are reported as unknown.
func (r *CandidateRepo) GetByID(ctx context.Context, id int64) (*model.Candidate, error) {
	var c *model.Candidate
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		c, err = getCandidate(ctx, r.db, q, id, "")
		return err
	})
	return c, err
}

func (r *CandidateRepo) List(ctx context.Context) ([]model.Candidate, error) {
	var list []model.Candidate
	err := r.db.Run(ctx, func(ctx context.Context, q Querier) error {
		var err error
		list, err = listCandidates(ctx, r.db, q, false)
		return err
	})
	return list, err
}

// Delete removes a candidate under policy:
//   - disallow refuses while any ballot references the candidate
//   - cascade-remove-votes deletes those ballots and restores the voters' right to vote
//   - retain-orphaned-tally-entry withdraws the candidate, keeping its ballots countable
//
// Candidates without ballots are always removed outright.
func (r *CandidateRepo) Delete(ctx context.Context, id int64, policy model.DeletePolicy, now int64) (model.DeleteOutcome, error) {
	var out model.DeleteOutcome
	err := r.db.WithTx(ctx, func(ctx context.Context, q Querier) error {
		if _, err := getCandidate(ctx, r.db, q, id, r.db.forUpdate()); err != nil {
			return err
		}
		votes, err := r.db.count(ctx, q, "ballots", map[string]interface{}{"candidate_id": id})
		if err != nil {
			return err
		}
		if votes > 0 {
			switch policy {
			case model.DeleteCascadeVotes:
				purged, err := purgeBallots(ctx, r.db, q, id, now)
				if err != nil {
					return err
				}
				out.BallotsPurged = purged
			case model.DeleteRetainOrphaned:
				if _, err := r.db.update(ctx, q, "candidates", map[string]interface{}{"id": id},
					map[string]interface{}{"withdrawn": 1, "mtime": now}); err != nil {
					return err
				}
				out.Withdrawn = true
				return nil
			default:
				return appErr.ErrCandidateHasVotes
			}
		}
		if _, err := r.db.delete(ctx, q, "candidates", map[string]interface{}{"id": id}); err != nil {
			return err
		}
		out.Removed = true
		return nil
	})
	if err != nil {
		return model.DeleteOutcome{}, err
	}
	return out, nil
}

func getCandidate(ctx context.Context, d *DB, q Querier, id int64, lock string) (*model.Candidate, error) {
	sqlStr, args, err := builder.BuildSelect("candidates", map[string]interface{}{"id": id, "withdrawn": 0}, candidateColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = d.finalize(sqlStr+lock, args)
	c, err := scanCandidate(q.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrUnknownCandidate
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func listCandidates(ctx context.Context, d *DB, q Querier, includeWithdrawn bool) ([]model.Candidate, error) {
	where := map[string]interface{}{"_orderby": "id asc"}
	if !includeWithdrawn {
		where["withdrawn"] = 0
	}
	sqlStr, args, err := builder.BuildSelect("candidates", where, candidateColumns())
	if err != nil {
		return nil, err
	}
	sqlStr, args = d.finalize(sqlStr, args)
	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	list := make([]model.Candidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (*model.Candidate, error) {
	var c model.Candidate
	if err := row.Scan(&c.ID, &c.Name, &c.Party, &c.Description, &c.ImageURL, &c.Withdrawn, &c.Ctime, &c.Mtime); err != nil {
		return nil, err
	}
	return &c, nil
}
