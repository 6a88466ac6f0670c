package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/shared"
)

var challanColumns = []string{
	"c.id", "c.challan_number", "c.requisition_id", "r.order_number", "c.date",
	"c.vehicle_number", "c.driver_name", "c.vehicle_type", "c.location", "c.remarks",
	"c.delivery_status", "c.delivery_date", "c.print_count", "c.created_at", "c.updated_at",
}

func selectChallans() squirrel.SelectBuilder {
	return builder().Select(challanColumns...).
		From("delivery_challans c").
		Join("requisitions r ON r.id = c.requisition_id")
}

func getChallan(ctx context.Context, q Querier, id int64, lock bool) (challan.Challan, error) {
	b := selectChallans().Where(squirrel.Eq{"c.id": id})
	if lock {
		b = b.Suffix("FOR UPDATE OF c")
	}
	return selectOne[challan.Challan](ctx, q, b)
}

// ============================================================================
// STORE
// ============================================================================

func (s *Store) GetChallan(ctx context.Context, id int64) (challan.Challan, error) {
	return getChallan(ctx, s.pool, id, false)
}

func (s *Store) ListChallans(ctx context.Context, filter challan.ListFilter) ([]challan.Challan, int, error) {
	q := selectChallans()
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"c.delivery_status": filter.Status})
	}
	if filter.Date != nil {
		q = q.Where(squirrel.Eq{"c.date": filter.Date.Format(dateLayout)})
	}

	total, err := count(ctx, s.pool, q)
	if err != nil {
		return nil, 0, err
	}
	items, err := selectAll[challan.Challan](ctx, s.pool,
		page(q.OrderBy("c.id DESC"), filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, fmt.Errorf("select challans: %w", err)
	}
	return items, total, nil
}

func (s *Store) PendingChallansForPayment(ctx context.Context) ([]challan.Challan, error) {
	q := selectChallans().
		Where(squirrel.Eq{"c.delivery_status": challan.StatusPending}).
		Where("NOT EXISTS (SELECT 1 FROM payments p WHERE p.delivery_challan_id = c.id)").
		OrderBy("c.id ASC")
	return selectAll[challan.Challan](ctx, s.pool, q)
}

// ============================================================================
// TRANSACTION
// ============================================================================

func (t *tx) HasChallan(ctx context.Context, requisitionID int64) (bool, error) {
	return exists(ctx, t.q, builder().Select("1").
		From("delivery_challans").
		Where(squirrel.Eq{"requisition_id": requisitionID}))
}

func (t *tx) InsertChallan(ctx context.Context, c *challan.Challan) error {
	query, args, err := builder().Insert("delivery_challans").
		Columns("challan_number", "requisition_id", "date", "vehicle_number", "driver_name",
			"vehicle_type", "location", "remarks", "delivery_status", "delivery_date", "print_count").
		Values(c.ChallanNumber, c.RequisitionID, c.Date, c.VehicleNumber, c.DriverName,
			c.VehicleType, c.Location, c.Remarks, c.Status, c.DeliveryDate, c.PrintCount).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	return t.q.QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (t *tx) LockChallan(ctx context.Context, id int64) (challan.Challan, error) {
	return getChallan(ctx, t.q, id, true)
}

func (t *tx) SaveChallan(ctx context.Context, c *challan.Challan) error {
	query, args, err := builder().Update("delivery_challans").
		Set("vehicle_number", c.VehicleNumber).
		Set("driver_name", c.DriverName).
		Set("vehicle_type", c.VehicleType).
		Set("location", c.Location).
		Set("remarks", c.Remarks).
		Set("delivery_status", c.Status).
		Set("delivery_date", c.DeliveryDate).
		Set("print_count", c.PrintCount).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if err := t.q.QueryRow(ctx, query, args...).Scan(&c.UpdatedAt); err != nil {
		if isNoRows(err) {
			return shared.ErrNotFound
		}
		return err
	}
	return nil
}
