package workflow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

// ============================================================================
// REQUISITION DTOs
// ============================================================================

// CreateRequisitionRequest is the payload to submit a requisition.
type CreateRequisitionRequest struct {
	BrickTypeID      int64            `json:"brick_type_id" validate:"required,gt=0"`
	Quantity         *decimal.Decimal `json:"quantity" validate:"required"`
	PricePerUnit     *decimal.Decimal `json:"price_per_unit,omitempty"`
	EnteredPrice     *decimal.Decimal `json:"entered_price" validate:"required"`
	TotalAmount      *decimal.Decimal `json:"total_amount" validate:"required"`
	CustomerName     string           `json:"customer_name" validate:"required,max=255"`
	CustomerPhone    string           `json:"customer_phone" validate:"required,max=20"`
	CustomerAddress  string           `json:"customer_address" validate:"required"`
	CustomerLocation string           `json:"customer_location" validate:"required,max=255"`
}

// PriceCheck reports whether a client-cached brick price is stale.
type PriceCheck struct {
	BrickTypeID    int64            `json:"brick_type_id"`
	PriceChanged   bool             `json:"price_changed"`
	CurrentPrice   *decimal.Decimal `json:"current_price"`
	SubmittedPrice decimal.Decimal  `json:"submitted_price"`
	Message        string           `json:"message,omitempty"`
}

// ============================================================================
// CHALLAN DTOs
// ============================================================================

// CreateChallanRequest is the payload to create a challan from a requisition.
type CreateChallanRequest struct {
	RequisitionID int64   `json:"requisition_id" validate:"required,gt=0"`
	VehicleNumber string  `json:"vehicle_number" validate:"required,max=255"`
	DriverName    *string `json:"driver_name,omitempty" validate:"omitempty,max=255"`
	VehicleType   *string `json:"vehicle_type,omitempty" validate:"omitempty,max=255"`
	Location      string  `json:"location" validate:"required,max=255"`
	Remarks       *string `json:"remarks,omitempty"`
}

// UpdateChallanRequest changes the vehicle details of an undelivered challan.
type UpdateChallanRequest struct {
	VehicleNumber *string `json:"vehicle_number,omitempty" validate:"omitempty,min=1,max=255"`
	DriverName    *string `json:"driver_name,omitempty" validate:"omitempty,max=255"`
	VehicleType   *string `json:"vehicle_type,omitempty" validate:"omitempty,max=255"`
	Location      *string `json:"location,omitempty" validate:"omitempty,min=1,max=255"`
	Remarks       *string `json:"remarks,omitempty"`
}

// UpdateDeliveryStatusRequest moves a challan along the delivery table.
type UpdateDeliveryStatusRequest struct {
	Status  challan.Status `json:"delivery_status" validate:"required"`
	Remarks *string        `json:"remarks,omitempty"`
}

// ============================================================================
// PAYMENT DTOs
// ============================================================================

// CreatePaymentRequest records the payment for a pending challan.
type CreatePaymentRequest struct {
	ChallanID       int64            `json:"delivery_challan_id" validate:"required,gt=0"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
	AmountReceived  *decimal.Decimal `json:"amount_received,omitempty"`
	PaymentDate     *Date            `json:"payment_date,omitempty"`
	Method          *payment.Method  `json:"payment_method,omitempty"`
	ReferenceNumber *string          `json:"reference_number,omitempty" validate:"omitempty,max=255"`
	Remarks         *string          `json:"remarks,omitempty"`
}

// UpdatePaymentRequest is a partial payment update.
type UpdatePaymentRequest struct {
	Method          *payment.Method  `json:"payment_method,omitempty"`
	AmountReceived  *decimal.Decimal `json:"amount_received,omitempty"`
	PaymentDate     *Date            `json:"payment_date,omitempty"`
	ReferenceNumber *string          `json:"reference_number,omitempty" validate:"omitempty,max=255"`
	Remarks         *string          `json:"remarks,omitempty"`
	Status          *payment.Status  `json:"payment_status,omitempty"`
}

// Changes converts the request into domain changes.
func (r UpdatePaymentRequest) Changes() payment.Changes {
	ch := payment.Changes{
		Method:          r.Method,
		AmountReceived:  r.AmountReceived,
		ReferenceNumber: r.ReferenceNumber,
		Remarks:         r.Remarks,
		Status:          r.Status,
	}
	if r.PaymentDate != nil {
		t := r.PaymentDate.Time()
		ch.PaymentDate = &t
	}
	return ch
}

// PaymentSummary aggregates payments by status.
type PaymentSummary struct {
	ByStatus         []payment.StatusTotals `json:"by_status"`
	TotalPayments    int                    `json:"total_payments"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	TotalReceived    decimal.Decimal        `json:"total_received"`
	TotalOutstanding decimal.Decimal        `json:"total_outstanding"`
}

// PaymentHistory is the audit timeline of one payment.
type PaymentHistory struct {
	Payment payment.Payment   `json:"payment"`
	Events  []shared.AuditLog `json:"events"`
}

// ============================================================================
// AGGREGATES
// ============================================================================

// RequisitionPage is one page of requisitions.
type RequisitionPage struct {
	Items      []requisition.Requisition
	Pagination shared.Pagination
}

// ChallanPage is one page of challans.
type ChallanPage struct {
	Items      []challan.Challan
	Pagination shared.Pagination
}

// PaymentPage is one page of payments.
type PaymentPage struct {
	Items      []payment.Payment
	Pagination shared.Pagination
}

// ============================================================================
// DATE
// ============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form.
type Date time.Time

// UnmarshalJSON parses a quoted YYYY-MM-DD date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	t, err := time.Parse(`"`+dateLayout+`"`, s)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}

// Time returns the date as time.Time.
func (d Date) Time() time.Time { return time.Time(d) }
