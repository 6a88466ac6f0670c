// Package postgres implements the workflow and report repositories on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brickflow/brickflow/internal/platform/db"
	"github.com/brickflow/brickflow/internal/reports"
	"github.com/brickflow/brickflow/internal/shared"
	"github.com/brickflow/brickflow/internal/workflow"
)

//go:embed schema.sql
var schema string

var (
	_ workflow.Repository   = (*Store)(nil)
	_ workflow.TxRepository = (*tx)(nil)
	_ reports.Repository    = (*Store)(nil)
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads through the pool and writes inside db.WithTxOptions transactions.
type Store struct {
	pool   *pgxpool.Pool
	txOpts db.TxOptions
}

// New creates a store on pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, txOpts: db.DefaultTxOptions()}
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

// WithTx runs fn in a ReadCommitted transaction.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, workflow.TxRepository) error) error {
	return db.WithTxOptions(ctx, s.pool, s.txOpts, func(t pgx.Tx) error {
		return fn(ctx, &tx{q: t})
	})
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func selectOne[T any](ctx context.Context, q Querier, b squirrel.Sqlizer) (T, error) {
	var out T
	query, args, err := b.ToSql()
	if err != nil {
		return out, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, q, &out, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return out, shared.ErrNotFound
		}
		return out, err
	}
	return out, nil
}

func selectAll[T any](ctx context.Context, q Querier, b squirrel.Sqlizer) ([]T, error) {
	out := []T{}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func count(ctx context.Context, q Querier, b squirrel.SelectBuilder) (int, error) {
	query, args, err := builder().Select("COUNT(*)").FromSelect(b, "sub").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func exec(ctx context.Context, q Querier, b squirrel.Sqlizer) (pgconn.CommandTag, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("build statement: %w", err)
	}
	return q.Exec(ctx, query, args...)
}

func exists(ctx context.Context, q Querier, b squirrel.SelectBuilder) (bool, error) {
	query, args, err := b.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}
	var ok bool
	if err := q.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func page(b squirrel.SelectBuilder, pageNum, perPage int) squirrel.SelectBuilder {
	if perPage <= 0 {
		return b
	}
	return b.Limit(uint64(perPage)).Offset(uint64(shared.Offset(pageNum, perPage)))
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
