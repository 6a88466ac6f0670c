package workflow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/money"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

// Response views render money as fixed two-decimal strings and dates as YYYY-MM-DD.

type requisitionView struct {
	ID               int64              `json:"id"`
	OrderNumber      string             `json:"order_number"`
	Date             string             `json:"date"`
	UserID           int64              `json:"user_id"`
	UserName         string             `json:"user_name"`
	BrickTypeID      int64              `json:"brick_type_id"`
	BrickTypeName    string             `json:"brick_type_name"`
	Quantity         string             `json:"quantity"`
	PricePerUnit     string             `json:"price_per_unit"`
	EnteredPrice     string             `json:"entered_price"`
	TotalAmount      string             `json:"total_amount"`
	CustomerName     string             `json:"customer_name"`
	CustomerPhone    string             `json:"customer_phone"`
	CustomerAddress  string             `json:"customer_address"`
	CustomerLocation string             `json:"customer_location"`
	Status           requisition.Status `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func newRequisitionView(r requisition.Requisition) requisitionView {
	return requisitionView{
		ID:               r.ID,
		OrderNumber:      r.OrderNumber,
		Date:             r.Date.Format(dateLayout),
		UserID:           r.UserID,
		UserName:         r.UserName,
		BrickTypeID:      r.BrickTypeID,
		BrickTypeName:    r.BrickTypeName,
		Quantity:         money.Format(r.Quantity),
		PricePerUnit:     money.Format(r.PricePerUnit),
		EnteredPrice:     money.Format(r.EnteredPrice),
		TotalAmount:      money.Format(r.TotalAmount),
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		CustomerAddress:  r.CustomerAddress,
		CustomerLocation: r.CustomerLocation,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func newRequisitionViews(items []requisition.Requisition) []requisitionView {
	out := make([]requisitionView, 0, len(items))
	for _, r := range items {
		out = append(out, newRequisitionView(r))
	}
	return out
}

type challanView struct {
	ID            int64          `json:"id"`
	ChallanNumber string         `json:"challan_number"`
	RequisitionID int64          `json:"requisition_id"`
	OrderNumber   string         `json:"order_number"`
	Date          string         `json:"date"`
	VehicleNumber string         `json:"vehicle_number"`
	DriverName    *string        `json:"driver_name"`
	VehicleType   *string        `json:"vehicle_type"`
	Location      string         `json:"location"`
	Remarks       *string        `json:"remarks"`
	Status        challan.Status `json:"delivery_status"`
	DeliveryDate  *string        `json:"delivery_date"`
	PrintCount    int            `json:"print_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func newChallanView(c challan.Challan) challanView {
	return challanView{
		ID:            c.ID,
		ChallanNumber: c.ChallanNumber,
		RequisitionID: c.RequisitionID,
		OrderNumber:   c.OrderNumber,
		Date:          c.Date.Format(dateLayout),
		VehicleNumber: c.VehicleNumber,
		DriverName:    c.DriverName,
		VehicleType:   c.VehicleType,
		Location:      c.Location,
		Remarks:       c.Remarks,
		Status:        c.Status,
		DeliveryDate:  formatDate(c.DeliveryDate),
		PrintCount:    c.PrintCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func newChallanViews(items []challan.Challan) []challanView {
	out := make([]challanView, 0, len(items))
	for _, c := range items {
		out = append(out, newChallanView(c))
	}
	return out
}

type paymentView struct {
	ID              int64           `json:"id"`
	ChallanID       int64           `json:"delivery_challan_id"`
	Status          payment.Status  `json:"payment_status"`
	TotalAmount     string          `json:"total_amount"`
	AmountReceived  string          `json:"amount_received"`
	RemainingAmount string          `json:"remaining_amount"`
	PaymentDate     *string         `json:"payment_date"`
	Method          *payment.Method `json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number"`
	Remarks         *string         `json:"remarks"`
	ApprovedBy      *int64          `json:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	IsLocked        bool            `json:"is_locked"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newPaymentView(p payment.Payment) paymentView {
	return paymentView{
		ID:              p.ID,
		ChallanID:       p.ChallanID,
		Status:          p.Status,
		TotalAmount:     money.Format(p.TotalAmount),
		AmountReceived:  money.Format(p.AmountReceived),
		RemainingAmount: money.Format(p.RemainingAmount()),
		PaymentDate:     formatDate(p.PaymentDate),
		Method:          p.Method,
		ReferenceNumber: p.ReferenceNumber,
		Remarks:         p.Remarks,
		ApprovedBy:      p.ApprovedBy,
		ApprovedAt:      p.ApprovedAt,
		IsLocked:        p.IsLocked(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func newPaymentViews(items []payment.Payment) []paymentView {
	out := make([]paymentView, 0, len(items))
	for _, p := range items {
		out = append(out, newPaymentView(p))
	}
	return out
}

type priceCheckView struct {
	BrickTypeID    int64   `json:"brick_type_id"`
	PriceChanged   bool    `json:"price_changed"`
	CurrentPrice   *string `json:"current_price"`
	SubmittedPrice string  `json:"submitted_price"`
	Message        string  `json:"message,omitempty"`
}

func newPriceCheckView(c PriceCheck) priceCheckView {
	v := priceCheckView{
		BrickTypeID:    c.BrickTypeID,
		PriceChanged:   c.PriceChanged,
		SubmittedPrice: money.Format(c.SubmittedPrice),
		Message:        c.Message,
	}
	if c.CurrentPrice != nil {
		s := money.Format(*c.CurrentPrice)
		v.CurrentPrice = &s
	}
	return v
}

type statusTotalsView struct {
	Status      payment.Status `json:"payment_status"`
	Count       int            `json:"count"`
	Total       string         `json:"total_amount"`
	Received    string         `json:"amount_received"`
	Outstanding string         `json:"outstanding_amount"`
}

type paymentSummaryView struct {
	ByStatus         []statusTotalsView `json:"by_status"`
	TotalPayments    int                `json:"total_payments"`
	TotalAmount      string             `json:"total_amount"`
	TotalReceived    string             `json:"total_received"`
	TotalOutstanding string             `json:"total_outstanding"`
}

func newPaymentSummaryView(s PaymentSummary) paymentSummaryView {
	v := paymentSummaryView{
		ByStatus:         make([]statusTotalsView, 0, len(s.ByStatus)),
		TotalPayments:    s.TotalPayments,
		TotalAmount:      money.Format(s.TotalAmount),
		TotalReceived:    money.Format(s.TotalReceived),
		TotalOutstanding: money.Format(s.TotalOutstanding),
	}
	for _, t := range s.ByStatus {
		v.ByStatus = append(v.ByStatus, statusTotalsView{
			Status:      t.Status,
			Count:       t.Count,
			Total:       money.Format(t.Total),
			Received:    money.Format(t.Received),
			Outstanding: money.Format(t.Outstanding),
		})
	}
	return v
}

type paymentHistoryView struct {
	Payment paymentView       `json:"payment"`
	Events  []shared.AuditLog `json:"events"`
}

type pageView[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func parseDecimalParam(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
