package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/shared"
)

var paymentColumns = []string{
	"id", "delivery_challan_id", "payment_status", "total_amount", "amount_received",
	"payment_date", "payment_method", "reference_number", "remarks",
	"approved_by", "approved_at", "created_at", "updated_at",
}

// statusOrder sorts aggregates the way payment.Statuses lists them.
const statusOrder = "array_position(ARRAY['pending','partial','paid','approved','overdue']::text[], p.payment_status)"

var statusTotalsColumns = []string{
	"p.payment_status",
	"COUNT(*) AS count",
	"COALESCE(SUM(p.total_amount), 0) AS total_amount",
	"COALESCE(SUM(p.amount_received), 0) AS amount_received",
	"COALESCE(SUM(p.total_amount - p.amount_received), 0) AS outstanding_amount",
}

func getPayment(ctx context.Context, q Querier, id int64, lock bool) (payment.Payment, error) {
	b := builder().Select(paymentColumns...).From("payments").Where(squirrel.Eq{"id": id})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	return selectOne[payment.Payment](ctx, q, b)
}

// lockedOrMissing explains why a guarded write touched no row.
func lockedOrMissing(ctx context.Context, q Querier, id int64) error {
	ok, err := exists(ctx, q, builder().Select("1").From("payments").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	if ok {
		return shared.ErrRecordLocked
	}
	return shared.ErrNotFound
}

// ============================================================================
// STORE
// ============================================================================

func (s *Store) GetPayment(ctx context.Context, id int64) (payment.Payment, error) {
	return getPayment(ctx, s.pool, id, false)
}

func (s *Store) ListPayments(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, int, error) {
	q := builder().Select(paymentColumns...).From("payments")
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"payment_status": filter.Status})
	}

	total, err := count(ctx, s.pool, q)
	if err != nil {
		return nil, 0, err
	}
	items, err := selectAll[payment.Payment](ctx, s.pool,
		page(q.OrderBy("id DESC"), filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, fmt.Errorf("select payments: %w", err)
	}
	return items, total, nil
}

func (s *Store) PaymentTotalsByStatus(ctx context.Context) ([]payment.StatusTotals, error) {
	return selectAll[payment.StatusTotals](ctx, s.pool, builder().
		Select(statusTotalsColumns...).
		From("payments p").
		GroupBy("p.payment_status").
		OrderBy(statusOrder))
}

// ============================================================================
// TRANSACTION
// ============================================================================

func (t *tx) HasPayment(ctx context.Context, challanID int64) (bool, error) {
	return exists(ctx, t.q, builder().Select("1").
		From("payments").
		Where(squirrel.Eq{"delivery_challan_id": challanID}))
}

func (t *tx) InsertPayment(ctx context.Context, p *payment.Payment) error {
	query, args, err := builder().Insert("payments").
		Columns("delivery_challan_id", "payment_status", "total_amount", "amount_received",
			"payment_date", "payment_method", "reference_number", "remarks", "approved_by", "approved_at").
		Values(p.ChallanID, p.Status, p.TotalAmount, p.AmountReceived,
			p.PaymentDate, p.Method, p.ReferenceNumber, p.Remarks, p.ApprovedBy, p.ApprovedAt).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	return t.q.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (t *tx) LockPayment(ctx context.Context, id int64) (payment.Payment, error) {
	return getPayment(ctx, t.q, id, true)
}

// SavePayment only touches rows that are not yet approved.
func (t *tx) SavePayment(ctx context.Context, p *payment.Payment) error {
	query, args, err := builder().Update("payments").
		Set("payment_status", p.Status).
		Set("total_amount", p.TotalAmount).
		Set("amount_received", p.AmountReceived).
		Set("payment_date", p.PaymentDate).
		Set("payment_method", p.Method).
		Set("reference_number", p.ReferenceNumber).
		Set("remarks", p.Remarks).
		Set("approved_by", p.ApprovedBy).
		Set("approved_at", p.ApprovedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.NotEq{"payment_status": payment.StatusApproved}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if err := t.q.QueryRow(ctx, query, args...).Scan(&p.UpdatedAt); err != nil {
		if isNoRows(err) {
			return lockedOrMissing(ctx, t.q, p.ID)
		}
		return err
	}
	return nil
}

func (t *tx) DeletePayment(ctx context.Context, id int64) error {
	tag, err := exec(ctx, t.q, builder().Delete("payments").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.NotEq{"payment_status": payment.StatusApproved}))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return lockedOrMissing(ctx, t.q, id)
	}
	return nil
}
