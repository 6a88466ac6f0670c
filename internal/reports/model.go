// Package reports builds the financial reports and the admin order history.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

// ============================================================================
// FINANCIAL REPORTS
// ============================================================================

// DeliveredOrder is one delivered challan with its order and payment figures.
type DeliveredOrder struct {
	ChallanID      int64           `db:"challan_id"`
	ChallanNumber  string          `db:"challan_number"`
	OrderNumber    string          `db:"order_number"`
	CustomerName   string          `db:"customer_name"`
	BrickType      string          `db:"brick_type"`
	Quantity       decimal.Decimal `db:"quantity"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	PaymentStatus  *payment.Status `db:"payment_status"`
	AmountReceived decimal.Decimal `db:"amount_received"`
	DeliveryDate   time.Time       `db:"delivery_date"`
	SalesExecutive string          `db:"sales_executive"`
}

// Status is the payment status, pending when no payment exists yet.
func (o DeliveredOrder) Status() payment.Status {
	if o.PaymentStatus == nil {
		return payment.StatusPending
	}
	return *o.PaymentStatus
}

// Outstanding is the order total minus what was received.
func (o DeliveredOrder) Outstanding() decimal.Decimal {
	return o.TotalAmount.Sub(o.AmountReceived)
}

// Summary totals a set of delivered orders.
type Summary struct {
	TotalDeliveredOrders   int
	TotalExpectedAmount    decimal.Decimal
	TotalReceivedAmount    decimal.Decimal
	TotalOutstandingAmount decimal.Decimal
}

// StatusBreakdown totals the delivered orders sharing a payment status.
type StatusBreakdown struct {
	Count             int
	ExpectedAmount    decimal.Decimal
	ReceivedAmount    decimal.Decimal
	OutstandingAmount decimal.Decimal
}

// DayTotals is one row of the range report's daily breakdown.
type DayTotals struct {
	Date              time.Time
	OrdersCount       int
	ExpectedAmount    decimal.Decimal
	ReceivedAmount    decimal.Decimal
	OutstandingAmount decimal.Decimal
}

// DailyReport covers the challans delivered on one day.
type DailyReport struct {
	Date      time.Time
	Summary   Summary
	Breakdown map[payment.Status]StatusBreakdown
	Orders    []DeliveredOrder
}

// RangeReport covers the challans delivered between From and To inclusive.
type RangeReport struct {
	From      time.Time
	To        time.Time
	Summary   Summary
	Breakdown map[payment.Status]StatusBreakdown
	Daily     []DayTotals
	Orders    []DeliveredOrder
}

// ============================================================================
// ORDER HISTORY
// ============================================================================

// OrderRecord is a requisition with its challan and payment, when they exist.
type OrderRecord struct {
	Requisition requisition.Requisition
	Challan     *challan.Challan
	Payment     *payment.Payment
}

// Outstanding is the payment total, or the order total when unpaid, minus what
// was received.
func (o OrderRecord) Outstanding() decimal.Decimal {
	if o.Payment == nil {
		return o.Requisition.TotalAmount
	}
	return o.Payment.RemainingAmount()
}

// HistoryFilter narrows the order history.
type HistoryFilter struct {
	PaymentStatus payment.Status
	OrderStatus   requisition.Status
	From          *time.Time
	To            *time.Time
	Search        string
	Page          int
	PerPage       int
}

// HistoryPage is one page of order history.
type HistoryPage struct {
	Items      []OrderRecord
	Pagination shared.Pagination
}

// Statistics summarises orders created in a period.
type Statistics struct {
	From              time.Time
	To                time.Time
	TotalOrders       int
	TotalValue        decimal.Decimal
	PendingPayments   int
	PartialPayments   int
	PaidOrders        int
	ApprovedOrders    int
	OutstandingAmount decimal.Decimal
	TotalReceived     decimal.Decimal
}

// OrderTotals counts orders and sums their value.
type OrderTotals struct {
	Count int             `db:"count"`
	Value decimal.Decimal `db:"value"`
}
