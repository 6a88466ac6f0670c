package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/brickflow/brickflow/internal/sequence"
	"github.com/brickflow/brickflow/internal/shared"
)

const dateLayout = "2006-01-02"

// tx implements workflow.TxRepository on one open transaction.
type tx struct {
	q Querier
}

type sequenceSource struct {
	table  string
	column string
}

var sequenceSources = map[string]sequenceSource{
	sequence.OrderNumber.Prefix:   {table: "requisitions", column: "order_number"},
	sequence.ChallanNumber.Prefix: {table: "delivery_challans", column: "challan_number"},
}

// LockLast takes a transaction-scoped advisory lock on the prefix, then reads the
// newest identifier. The advisory lock also covers the empty-table case where
// there is no row to lock.
func (t *tx) LockLast(ctx context.Context, f sequence.Format) (string, error) {
	src, ok := sequenceSources[f.Prefix]
	if !ok {
		return "", fmt.Errorf("postgres: no sequence for prefix %q", f.Prefix)
	}
	if _, err := t.q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", f.Prefix); err != nil {
		return "", fmt.Errorf("advisory lock: %w", err)
	}

	query, args, err := builder().Select(src.column).
		From(src.table).
		OrderBy("id DESC").
		Limit(1).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}
	var last string
	if err := t.q.QueryRow(ctx, query, args...).Scan(&last); err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return last, nil
}

func (t *tx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	var at any = squirrel.Expr("NOW()")
	if !log.At.IsZero() {
		at = log.At
	}
	_, err := exec(ctx, t.q, builder().Insert("audit_logs").
		Columns("actor_id", "action", "entity", "entity_id", "meta", "at").
		Values(log.ActorID, log.Action, log.Entity, log.EntityID, log.Meta, at))
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *Store) AuditTrail(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error) {
	return selectAll[shared.AuditLog](ctx, s.pool, builder().
		Select("actor_id", "action", "entity", "entity_id", "meta", "at").
		From("audit_logs").
		Where(squirrel.Eq{"entity": entity, "entity_id": entityID}).
		OrderBy("id ASC"))
}
