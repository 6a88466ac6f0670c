package reports

import (
	"context"
	"time"

	"github.com/brickflow/brickflow/internal/payment"
)

// Repository provides the read models behind the reports. Date bounds are
// inclusive calendar days.
type Repository interface {
	// DeliveredOrders lists delivered challans whose delivery date falls in
	// [from, to], ordered by delivery date then challan number.
	DeliveredOrders(ctx context.Context, from, to time.Time) ([]DeliveredOrder, error)

	OrderHistory(ctx context.Context, filter HistoryFilter) ([]OrderRecord, int, error)
	// OrderRecord returns shared.ErrNotFound for an unknown requisition.
	OrderRecord(ctx context.Context, requisitionID int64) (OrderRecord, error)

	// OrderTotals and PaymentTotals cover requisitions created in [from, to].
	OrderTotals(ctx context.Context, from, to time.Time) (OrderTotals, error)
	PaymentTotals(ctx context.Context, from, to time.Time) ([]payment.StatusTotals, error)
}
