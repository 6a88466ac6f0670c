package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickflow/brickflow/internal/money"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
)

const dateLayout = time.DateOnly

type summaryView struct {
	TotalDeliveredOrders   int    `json:"total_delivered_orders"`
	TotalExpectedAmount    string `json:"total_expected_amount"`
	TotalReceivedAmount    string `json:"total_received_amount"`
	TotalOutstandingAmount string `json:"total_outstanding_amount"`
}

type breakdownView struct {
	Count             int    `json:"count"`
	ExpectedAmount    string `json:"expected_amount"`
	ReceivedAmount    string `json:"received_amount"`
	OutstandingAmount string `json:"outstanding_amount"`
}

type deliveredOrderView struct {
	ChallanNumber     string         `json:"challan_number"`
	OrderNumber       string         `json:"order_number"`
	CustomerName      string         `json:"customer_name"`
	BrickType         string         `json:"brick_type"`
	Quantity          string         `json:"quantity"`
	TotalAmount       string         `json:"total_amount"`
	PaymentStatus     payment.Status `json:"payment_status"`
	AmountReceived    string         `json:"amount_received"`
	OutstandingAmount string         `json:"outstanding_amount"`
	DeliveryDate      string         `json:"delivery_date"`
	SalesExecutive    string         `json:"sales_executive"`
}

type dayView struct {
	Date              string `json:"date"`
	OrdersCount       int    `json:"orders_count"`
	ExpectedAmount    string `json:"expected_amount"`
	ReceivedAmount    string `json:"received_amount"`
	OutstandingAmount string `json:"outstanding_amount"`
}

type dailyReportView struct {
	ReportType string                           `json:"report_type"`
	Date       string                           `json:"date"`
	Summary    summaryView                      `json:"summary"`
	Breakdown  map[payment.Status]breakdownView `json:"payment_status_breakdown"`
	Orders     []deliveredOrderView             `json:"delivered_orders"`
}

type rangeReportView struct {
	ReportType string                           `json:"report_type"`
	FromDate   string                           `json:"from_date"`
	ToDate     string                           `json:"to_date"`
	Summary    summaryView                      `json:"summary"`
	Breakdown  map[payment.Status]breakdownView `json:"payment_status_breakdown"`
	Daily      []dayView                        `json:"daily_breakdown"`
	Orders     []deliveredOrderView             `json:"delivered_orders"`
}

func newSummaryView(s Summary) summaryView {
	return summaryView{
		TotalDeliveredOrders:   s.TotalDeliveredOrders,
		TotalExpectedAmount:    money.Format(s.TotalExpectedAmount),
		TotalReceivedAmount:    money.Format(s.TotalReceivedAmount),
		TotalOutstandingAmount: money.Format(s.TotalOutstandingAmount),
	}
}

func newBreakdownView(b map[payment.Status]StatusBreakdown) map[payment.Status]breakdownView {
	out := make(map[payment.Status]breakdownView, len(b))
	for status, v := range b {
		out[status] = breakdownView{
			Count:             v.Count,
			ExpectedAmount:    money.Format(v.ExpectedAmount),
			ReceivedAmount:    money.Format(v.ReceivedAmount),
			OutstandingAmount: money.Format(v.OutstandingAmount),
		}
	}
	return out
}

func newDeliveredOrderViews(orders []DeliveredOrder) []deliveredOrderView {
	out := make([]deliveredOrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, deliveredOrderView{
			ChallanNumber:     o.ChallanNumber,
			OrderNumber:       o.OrderNumber,
			CustomerName:      o.CustomerName,
			BrickType:         o.BrickType,
			Quantity:          money.Format(o.Quantity),
			TotalAmount:       money.Format(o.TotalAmount),
			PaymentStatus:     o.Status(),
			AmountReceived:    money.Format(o.AmountReceived),
			OutstandingAmount: money.Format(o.Outstanding()),
			DeliveryDate:      o.DeliveryDate.Format(dateLayout),
			SalesExecutive:    o.SalesExecutive,
		})
	}
	return out
}

func newDailyReportView(r DailyReport) dailyReportView {
	return dailyReportView{
		ReportType: "daily",
		Date:       r.Date.Format(dateLayout),
		Summary:    newSummaryView(r.Summary),
		Breakdown:  newBreakdownView(r.Breakdown),
		Orders:     newDeliveredOrderViews(r.Orders),
	}
}

func newRangeReportView(r RangeReport) rangeReportView {
	days := make([]dayView, 0, len(r.Daily))
	for _, d := range r.Daily {
		days = append(days, dayView{
			Date:              d.Date.Format(dateLayout),
			OrdersCount:       d.OrdersCount,
			ExpectedAmount:    money.Format(d.ExpectedAmount),
			ReceivedAmount:    money.Format(d.ReceivedAmount),
			OutstandingAmount: money.Format(d.OutstandingAmount),
		})
	}
	return rangeReportView{
		ReportType: "range",
		FromDate:   r.From.Format(dateLayout),
		ToDate:     r.To.Format(dateLayout),
		Summary:    newSummaryView(r.Summary),
		Breakdown:  newBreakdownView(r.Breakdown),
		Daily:      days,
		Orders:     newDeliveredOrderViews(r.Orders),
	}
}

// ============================================================================
// ORDER HISTORY VIEWS
// ============================================================================

const (
	deliveryNotAssigned = "not_assigned"
	paymentNone         = "no_payment"
)

type historyRowView struct {
	ID                int64              `json:"id"`
	OrderNumber       string             `json:"order_number"`
	CustomerName      string             `json:"customer_name"`
	CustomerPhone     string             `json:"customer_phone"`
	BrickType         string             `json:"brick_type"`
	Quantity          string             `json:"quantity"`
	TotalAmount       string             `json:"total_amount"`
	OrderDate         string             `json:"order_date"`
	OrderStatus       requisition.Status `json:"order_status"`
	DeliveryStatus    string             `json:"delivery_status"`
	PaymentStatus     string             `json:"payment_status"`
	AmountReceived    string             `json:"amount_received"`
	OutstandingAmount string             `json:"outstanding_amount"`
	SalesExecutive    string             `json:"sales_executive"`
}

func newHistoryRowView(rec OrderRecord) historyRowView {
	r := rec.Requisition
	v := historyRowView{
		ID:                r.ID,
		OrderNumber:       r.OrderNumber,
		CustomerName:      r.CustomerName,
		CustomerPhone:     r.CustomerPhone,
		BrickType:         r.BrickTypeName,
		Quantity:          money.Format(r.Quantity),
		TotalAmount:       money.Format(r.TotalAmount),
		OrderDate:         r.CreatedAt.Format("2006-01-02 15:04"),
		OrderStatus:       r.Status,
		DeliveryStatus:    deliveryNotAssigned,
		PaymentStatus:     paymentNone,
		AmountReceived:    money.Format(decimal.Zero),
		OutstandingAmount: money.Format(rec.Outstanding()),
		SalesExecutive:    r.UserName,
	}
	if rec.Challan != nil {
		v.DeliveryStatus = string(rec.Challan.Status)
	}
	if rec.Payment != nil {
		v.PaymentStatus = string(rec.Payment.Status)
		v.AmountReceived = money.Format(rec.Payment.AmountReceived)
	}
	return v
}

type customerView struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Location string `json:"location"`
}

type orderDetailsView struct {
	BrickType    string `json:"brick_type"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
	EnteredPrice string `json:"entered_price"`
	TotalAmount  string `json:"total_amount"`
}

type salesDetailsView struct {
	ExecutiveID   int64  `json:"executive_id"`
	ExecutiveName string `json:"executive_name"`
}

type logisticsView struct {
	ChallanNumber  string  `json:"challan_number"`
	DeliveryStatus string  `json:"delivery_status"`
	DeliveryDate   *string `json:"delivery_date"`
	DriverName     *string `json:"driver_name"`
	VehicleNumber  string  `json:"vehicle_number"`
	VehicleType    *string `json:"vehicle_type"`
	Remarks        *string `json:"remarks"`
	PrintCount     int     `json:"print_count"`
}

type paymentDetailsView struct {
	PaymentStatus   payment.Status  `json:"payment_status"`
	TotalAmount     string          `json:"total_amount"`
	AmountReceived  string          `json:"amount_received"`
	RemainingAmount string          `json:"remaining_amount"`
	PaymentDate     *string         `json:"payment_date"`
	PaymentMethod   *payment.Method `json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number"`
	Remarks         *string         `json:"remarks"`
}

type accountDetailsView struct {
	ApprovedBy *int64  `json:"approved_by"`
	ApprovedAt *string `json:"approved_at"`
}

type orderDetailView struct {
	ID           int64               `json:"id"`
	OrderNumber  string              `json:"order_number"`
	OrderDate    string              `json:"order_date"`
	Status       requisition.Status  `json:"status"`
	Customer     customerView        `json:"customer"`
	OrderDetails orderDetailsView    `json:"order_details"`
	SalesDetails salesDetailsView    `json:"sales_details"`
	Logistics    *logisticsView      `json:"logistics_details"`
	Payment      *paymentDetailsView `json:"payment_details"`
	Account      *accountDetailsView `json:"account_details"`
}

// newOrderDetailView renders account details only once the payment is approved.
func newOrderDetailView(rec OrderRecord) orderDetailView {
	r := rec.Requisition
	v := orderDetailView{
		ID:          r.ID,
		OrderNumber: r.OrderNumber,
		OrderDate:   r.CreatedAt.Format(time.DateTime),
		Status:      r.Status,
		Customer: customerView{
			Name:     r.CustomerName,
			Phone:    r.CustomerPhone,
			Address:  r.CustomerAddress,
			Location: r.CustomerLocation,
		},
		OrderDetails: orderDetailsView{
			BrickType:    r.BrickTypeName,
			Quantity:     money.Format(r.Quantity),
			PricePerUnit: money.Format(r.PricePerUnit),
			EnteredPrice: money.Format(r.EnteredPrice),
			TotalAmount:  money.Format(r.TotalAmount),
		},
		SalesDetails: salesDetailsView{ExecutiveID: r.UserID, ExecutiveName: r.UserName},
	}
	if c := rec.Challan; c != nil {
		v.Logistics = &logisticsView{
			ChallanNumber:  c.ChallanNumber,
			DeliveryStatus: string(c.Status),
			DeliveryDate:   formatDate(c.DeliveryDate, dateLayout),
			DriverName:     c.DriverName,
			VehicleNumber:  c.VehicleNumber,
			VehicleType:    c.VehicleType,
			Remarks:        c.Remarks,
			PrintCount:     c.PrintCount,
		}
	}
	if p := rec.Payment; p != nil {
		v.Payment = &paymentDetailsView{
			PaymentStatus:   p.Status,
			TotalAmount:     money.Format(p.TotalAmount),
			AmountReceived:  money.Format(p.AmountReceived),
			RemainingAmount: money.Format(p.RemainingAmount()),
			PaymentDate:     formatDate(p.PaymentDate, dateLayout),
			PaymentMethod:   p.Method,
			ReferenceNumber: p.ReferenceNumber,
			Remarks:         p.Remarks,
		}
		if p.IsLocked() {
			v.Account = &accountDetailsView{
				ApprovedBy: p.ApprovedBy,
				ApprovedAt: formatDate(p.ApprovedAt, time.DateTime),
			}
		}
	}
	return v
}

type statisticsView struct {
	TotalOrders       int    `json:"total_orders"`
	TotalValue        string `json:"total_value"`
	PendingPayments   int    `json:"pending_payments"`
	PartialPayments   int    `json:"partial_payments"`
	PaidOrders        int    `json:"paid_orders"`
	ApprovedOrders    int    `json:"approved_orders"`
	OutstandingAmount string `json:"outstanding_amount"`
	TotalReceived     string `json:"total_received"`
}

type statisticsEnvelope struct {
	Statistics statisticsView    `json:"statistics"`
	DateRange  map[string]string `json:"date_range"`
}

func newStatisticsView(s Statistics) statisticsEnvelope {
	return statisticsEnvelope{
		Statistics: statisticsView{
			TotalOrders:       s.TotalOrders,
			TotalValue:        money.Format(s.TotalValue),
			PendingPayments:   s.PendingPayments,
			PartialPayments:   s.PartialPayments,
			PaidOrders:        s.PaidOrders,
			ApprovedOrders:    s.ApprovedOrders,
			OutstandingAmount: money.Format(s.OutstandingAmount),
			TotalReceived:     money.Format(s.TotalReceived),
		},
		DateRange: map[string]string{
			"from": s.From.Format(dateLayout),
			"to":   s.To.Format(dateLayout),
		},
	}
}

func formatDate(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}
