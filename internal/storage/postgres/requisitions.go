package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

var requisitionColumns = []string{
	"r.id", "r.order_number", "r.date", "r.user_id", "r.user_name",
	"r.brick_type_id", "b.name AS brick_type_name",
	"r.quantity", "r.price_per_unit", "r.entered_price", "r.total_amount",
	"r.customer_name", "r.customer_phone", "r.customer_address", "r.customer_location",
	"r.status", "r.created_at", "r.updated_at",
}

func selectRequisitions() squirrel.SelectBuilder {
	return builder().Select(requisitionColumns...).
		From("requisitions r").
		Join("brick_types b ON b.id = r.brick_type_id")
}

func activeBrickType(ctx context.Context, q Querier, id int64) (requisition.BrickType, error) {
	return selectOne[requisition.BrickType](ctx, q, builder().
		Select("id", "name", "current_price", "active").
		From("brick_types").
		Where(squirrel.Eq{"id": id, "active": true}))
}

func getRequisition(ctx context.Context, q Querier, id int64, lock bool) (requisition.Requisition, error) {
	b := selectRequisitions().Where(squirrel.Eq{"r.id": id})
	if lock {
		b = b.Suffix("FOR UPDATE OF r")
	}
	return selectOne[requisition.Requisition](ctx, q, b)
}

// ============================================================================
// STORE
// ============================================================================

func (s *Store) ActiveBrickType(ctx context.Context, id int64) (requisition.BrickType, error) {
	return activeBrickType(ctx, s.pool, id)
}

func (s *Store) GetRequisition(ctx context.Context, id int64) (requisition.Requisition, error) {
	return getRequisition(ctx, s.pool, id, false)
}

func (s *Store) ListRequisitions(ctx context.Context, filter requisition.ListFilter) ([]requisition.Requisition, int, error) {
	q := selectRequisitions()
	if filter.UserID != 0 {
		q = q.Where(squirrel.Eq{"r.user_id": filter.UserID})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"r.status": filter.Status})
	}
	if filter.Date != nil {
		q = q.Where(squirrel.Eq{"r.date": filter.Date.Format(dateLayout)})
	}

	total, err := count(ctx, s.pool, q)
	if err != nil {
		return nil, 0, err
	}
	items, err := selectAll[requisition.Requisition](ctx, s.pool,
		page(q.OrderBy("r.id DESC"), filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, fmt.Errorf("select requisitions: %w", err)
	}
	return items, total, nil
}

func (s *Store) PendingRequisitions(ctx context.Context) ([]requisition.Requisition, error) {
	q := selectRequisitions().
		Where(squirrel.Eq{"r.status": requisition.StatusSubmitted}).
		Where("NOT EXISTS (SELECT 1 FROM delivery_challans c WHERE c.requisition_id = r.id)").
		OrderBy("r.id ASC")
	return selectAll[requisition.Requisition](ctx, s.pool, q)
}

// ============================================================================
// TRANSACTION
// ============================================================================

func (t *tx) ActiveBrickType(ctx context.Context, id int64) (requisition.BrickType, error) {
	return activeBrickType(ctx, t.q, id)
}

func (t *tx) InsertRequisition(ctx context.Context, r *requisition.Requisition) error {
	query, args, err := builder().Insert("requisitions").
		Columns("order_number", "date", "user_id", "user_name", "brick_type_id",
			"quantity", "price_per_unit", "entered_price", "total_amount",
			"customer_name", "customer_phone", "customer_address", "customer_location", "status").
		Values(r.OrderNumber, r.Date, r.UserID, r.UserName, r.BrickTypeID,
			r.Quantity, r.PricePerUnit, r.EnteredPrice, r.TotalAmount,
			r.CustomerName, r.CustomerPhone, r.CustomerAddress, r.CustomerLocation, r.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	return t.q.QueryRow(ctx, query, args...).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (t *tx) GetRequisition(ctx context.Context, id int64) (requisition.Requisition, error) {
	return getRequisition(ctx, t.q, id, false)
}

func (t *tx) LockRequisition(ctx context.Context, id int64) (requisition.Requisition, error) {
	return getRequisition(ctx, t.q, id, true)
}

func (t *tx) UpdateRequisitionStatus(ctx context.Context, id int64, status requisition.Status) error {
	tag, err := exec(ctx, t.q, builder().Update("requisitions").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SeedBrickType inserts b, or updates the price and availability of the brick
// type with the same name.
func (s *Store) SeedBrickType(ctx context.Context, b requisition.BrickType) (requisition.BrickType, error) {
	query, args, err := builder().Update("brick_types").
		Set("current_price", b.CurrentPrice).
		Set("active", b.Active).
		Where(squirrel.Eq{"name": b.Name}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return b, fmt.Errorf("build update: %w", err)
	}
	err = s.pool.QueryRow(ctx, query, args...).Scan(&b.ID)
	if err == nil {
		return b, nil
	}
	if !isNoRows(err) {
		return b, err
	}

	query, args, err = builder().Insert("brick_types").
		Columns("name", "current_price", "active").
		Values(b.Name, b.CurrentPrice, b.Active).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return b, fmt.Errorf("build insert: %w", err)
	}
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&b.ID); err != nil {
		return b, err
	}
	return b, nil
}
