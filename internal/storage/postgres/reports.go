package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/reports"
	"github.com/brickflow/brickflow/internal/requisition"
)

func createdBetween(from, to time.Time) squirrel.Sqlizer {
	return squirrel.And{
		squirrel.Expr("r.created_at::date >= ?", from.Format(dateLayout)),
		squirrel.Expr("r.created_at::date <= ?", to.Format(dateLayout)),
	}
}

func (s *Store) DeliveredOrders(ctx context.Context, from, to time.Time) ([]reports.DeliveredOrder, error) {
	q := builder().Select(
		"c.id AS challan_id",
		"c.challan_number",
		"r.order_number",
		"r.customer_name",
		"b.name AS brick_type",
		"r.quantity",
		"r.total_amount",
		"p.payment_status",
		"COALESCE(p.amount_received, 0) AS amount_received",
		"c.delivery_date",
		"r.user_name AS sales_executive",
	).
		From("delivery_challans c").
		Join("requisitions r ON r.id = c.requisition_id").
		Join("brick_types b ON b.id = r.brick_type_id").
		LeftJoin("payments p ON p.delivery_challan_id = c.id").
		Where(squirrel.Eq{"c.delivery_status": challan.StatusDelivered}).
		Where(squirrel.Expr("c.delivery_date BETWEEN ? AND ?", from.Format(dateLayout), to.Format(dateLayout))).
		OrderBy("c.delivery_date ASC", "c.challan_number ASC")

	items, err := selectAll[reports.DeliveredOrder](ctx, s.pool, q)
	if err != nil {
		return nil, fmt.Errorf("select delivered orders: %w", err)
	}
	return items, nil
}

func (s *Store) OrderHistory(ctx context.Context, filter reports.HistoryFilter) ([]reports.OrderRecord, int, error) {
	q := selectRequisitions()
	if filter.OrderStatus != "" {
		q = q.Where(squirrel.Eq{"r.status": filter.OrderStatus})
	}
	if filter.PaymentStatus != "" {
		q = q.Where(squirrel.Expr(`EXISTS (SELECT 1 FROM payments p
			JOIN delivery_challans c ON c.id = p.delivery_challan_id
			WHERE c.requisition_id = r.id AND p.payment_status = ?)`, filter.PaymentStatus))
	}
	if filter.From != nil {
		q = q.Where(squirrel.Expr("r.created_at::date >= ?", filter.From.Format(dateLayout)))
	}
	if filter.To != nil {
		q = q.Where(squirrel.Expr("r.created_at::date <= ?", filter.To.Format(dateLayout)))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"r.order_number": pattern},
			squirrel.ILike{"r.customer_name": pattern},
		})
	}

	total, err := count(ctx, s.pool, q)
	if err != nil {
		return nil, 0, err
	}
	reqs, err := selectAll[requisition.Requisition](ctx, s.pool,
		page(q.OrderBy("r.id DESC"), filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, fmt.Errorf("select order history: %w", err)
	}
	records, err := s.attach(ctx, reqs)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *Store) OrderRecord(ctx context.Context, requisitionID int64) (reports.OrderRecord, error) {
	r, err := getRequisition(ctx, s.pool, requisitionID, false)
	if err != nil {
		return reports.OrderRecord{}, err
	}
	records, err := s.attach(ctx, []requisition.Requisition{r})
	if err != nil {
		return reports.OrderRecord{}, err
	}
	return records[0], nil
}

// attach loads the challan and payment of every requisition in two queries.
func (s *Store) attach(ctx context.Context, reqs []requisition.Requisition) ([]reports.OrderRecord, error) {
	records := make([]reports.OrderRecord, len(reqs))
	if len(reqs) == 0 {
		return records, nil
	}
	ids := make([]int64, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
		records[i].Requisition = r
	}

	challans, err := selectAll[challan.Challan](ctx, s.pool,
		selectChallans().Where(squirrel.Eq{"c.requisition_id": ids}))
	if err != nil {
		return nil, fmt.Errorf("select challans: %w", err)
	}
	byRequisition := make(map[int64]challan.Challan, len(challans))
	challanIDs := make([]int64, 0, len(challans))
	for _, c := range challans {
		byRequisition[c.RequisitionID] = c
		challanIDs = append(challanIDs, c.ID)
	}

	byChallan := map[int64]payment.Payment{}
	if len(challanIDs) > 0 {
		payments, err := selectAll[payment.Payment](ctx, s.pool, builder().
			Select(paymentColumns...).
			From("payments").
			Where(squirrel.Eq{"delivery_challan_id": challanIDs}))
		if err != nil {
			return nil, fmt.Errorf("select payments: %w", err)
		}
		for _, p := range payments {
			byChallan[p.ChallanID] = p
		}
	}

	for i := range records {
		c, ok := byRequisition[records[i].Requisition.ID]
		if !ok {
			continue
		}
		records[i].Challan = &c
		if p, ok := byChallan[c.ID]; ok {
			records[i].Payment = &p
		}
	}
	return records, nil
}

func (s *Store) OrderTotals(ctx context.Context, from, to time.Time) (reports.OrderTotals, error) {
	return selectOne[reports.OrderTotals](ctx, s.pool, builder().
		Select("COUNT(*) AS count", "COALESCE(SUM(r.total_amount), 0) AS value").
		From("requisitions r").
		Where(createdBetween(from, to)))
}

func (s *Store) PaymentTotals(ctx context.Context, from, to time.Time) ([]payment.StatusTotals, error) {
	return selectAll[payment.StatusTotals](ctx, s.pool, builder().
		Select(statusTotalsColumns...).
		From("payments p").
		Join("delivery_challans c ON c.id = p.delivery_challan_id").
		Join("requisitions r ON r.id = c.requisition_id").
		Where(createdBetween(from, to)).
		GroupBy("p.payment_status").
		OrderBy(statusOrder))
}
