package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/evoting/internal/pkg/dbutil"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DB struct {
	conn    *sql.DB
	driver  string
	timeout time.Duration
}

func NewDB(conn *sql.DB, driver string, timeout time.Duration) *DB {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DB{conn: conn, driver: driver, timeout: timeout}
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Run executes fn against the pool, outside any transaction.
func (d *DB) Run(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return classify(fn(ctx, d.conn))
}

// WithTx runs fn in a read-write transaction. Any error from fn rolls back.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return d.withTx(ctx, nil, fn)
}

// WithReadTx runs fn in a read-only snapshot. Postgres gets REPEATABLE READ so
// every statement in fn observes the same committed state; sqlite transactions
// are already isolated from the single writer.
func (d *DB) WithReadTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	var opts *sql.TxOptions
	if d.driver == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return d.withTx(ctx, opts, fn)
}

func (d *DB) withTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, q Querier) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	tx, err := d.conn.BeginTx(ctx, opts)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (d *DB) finalize(query string, args []interface{}) (string, []interface{}) {
	return dbutil.Finalize(d.driver, query, args)
}

func (d *DB) forUpdate() string {
	if d.driver == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

func (d *DB) forShare() string {
	if d.driver == "postgres" {
		return " FOR SHARE"
	}
	return ""
}

func (d *DB) insert(ctx context.Context, q Querier, table string, data map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildInsert(table, []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = d.finalize(sqlStr+" RETURNING id", args)
	var id int64
	if err := q.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) update(ctx context.Context, q Querier, table string, where, data map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildUpdate(table, where, data)
	if err != nil {
		return 0, err
	}
	sqlStr, args = d.finalize(sqlStr, args)
	result, err := q.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) delete(ctx context.Context, q Querier, table string, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildDelete(table, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = d.finalize(sqlStr, args)
	result, err := q.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) count(ctx context.Context, q Querier, table string, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildSelect(table, where, []string{"count(1)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = d.finalize(sqlStr, args)
	var n int64
	if err := q.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// classify leaves domain errors alone and tags retryable storage failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *appErr.CodeError
	if errors.As(err, &ce) {
		return err
	}
	if dbutil.IsTransient(err) {
		return fmt.Errorf("%w: %w", appErr.ErrTransient, err)
	}
	return err
}
