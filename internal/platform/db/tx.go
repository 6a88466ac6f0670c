package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("brickflow/db")

// TxOptions configures WithTxOptions.
type TxOptions struct {
	IsoLevel         pgx.TxIsoLevel
	StatementTimeout time.Duration
}

// DefaultTxOptions is ReadCommitted with a 30s statement timeout. Row and advisory
// locks taken inside the transaction make later reads see rows committed by the
// previous lock holder.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsoLevel:         pgx.ReadCommitted,
		StatementTimeout: 30 * time.Second,
	}
}

// WithTx executes fn within a transaction using DefaultTxOptions.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxOptions(ctx, pool, DefaultTxOptions(), fn)
}

// WithTxOptions executes fn within a transaction, committing when fn returns nil.
func WithTxOptions(ctx context.Context, pool *pgxpool.Pool, opts TxOptions, fn func(pgx.Tx) error) (err error) {
	ctx, span := tracer.Start(ctx, "db.transaction", trace.WithAttributes(
		attribute.String("db.tx.isolation", string(opts.IsoLevel)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: opts.IsoLevel})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	if opts.StatementTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("platform/db: set statement_timeout: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
