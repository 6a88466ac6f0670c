// Package payment models challan payments, their derived status and the approval
// lock.
package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// STATUS
// ============================================================================

// Status represents the lifecycle of a payment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPartial  Status = "partial"
	StatusPaid     Status = "paid"
	StatusApproved Status = "approved"
	StatusOverdue  Status = "overdue"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusPartial, StatusPaid, StatusOverdue},
	StatusPartial:  {StatusPaid, StatusOverdue},
	StatusPaid:     {StatusApproved},
	StatusOverdue:  {StatusPartial, StatusPaid},
	StatusApproved: {},
}

// Statuses returns every payment status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusPartial, StatusPaid, StatusApproved, StatusOverdue}
}

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether target is a legal caller-requested edge from s.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsLocked reports whether a payment in this status rejects every mutation.
func (s Status) IsLocked() bool {
	return s == StatusApproved
}

// DeriveStatus computes the status implied by the amounts.
func DeriveStatus(total, received decimal.Decimal) Status {
	switch {
	case received.IsZero():
		return StatusPending
	case received.LessThan(total):
		return StatusPartial
	default:
		return StatusPaid
	}
}

// ============================================================================
// METHOD
// ============================================================================

// Method is how the customer paid.
type Method string

const (
	MethodCash         Method = "cash"
	MethodCheque       Method = "cheque"
	MethodBankTransfer Method = "bank_transfer"
	MethodUPI          Method = "upi"
)

// IsValid checks if the method is known.
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCheque, MethodBankTransfer, MethodUPI:
		return true
	default:
		return false
	}
}

// ============================================================================
// ENTITY
// ============================================================================

// Payment is the single payment record for a challan.
type Payment struct {
	ID              int64           `json:"id" db:"id"`
	ChallanID       int64           `json:"delivery_challan_id" db:"delivery_challan_id"`
	Status          Status          `json:"payment_status" db:"payment_status"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	AmountReceived  decimal.Decimal `json:"amount_received" db:"amount_received"`
	PaymentDate     *time.Time      `json:"payment_date,omitempty" db:"payment_date"`
	Method          *Method         `json:"payment_method,omitempty" db:"payment_method"`
	ReferenceNumber *string         `json:"reference_number,omitempty" db:"reference_number"`
	Remarks         *string         `json:"remarks,omitempty" db:"remarks"`
	ApprovedBy      *int64          `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// RemainingAmount is the unpaid balance.
func (p *Payment) RemainingAmount() decimal.Decimal {
	return p.TotalAmount.Sub(p.AmountReceived)
}

// IsLocked reports whether the payment has been approved.
func (p *Payment) IsLocked() bool {
	return p.Status.IsLocked()
}

// IsFullyPaid reports whether received covers the total.
func (p *Payment) IsFullyPaid() bool {
	return p.AmountReceived.GreaterThanOrEqual(p.TotalAmount)
}

// Rederive sets Status from the amounts. Callers run it on creation and whenever
// AmountReceived changes.
func (p *Payment) Rederive() {
	p.Status = DeriveStatus(p.TotalAmount, p.AmountReceived)
}

// ============================================================================
// QUERIES
// ============================================================================

// ListFilter narrows payment listings.
type ListFilter struct {
	Status  Status
	Page    int
	PerPage int
}

// StatusTotals aggregates payments sharing a status.
type StatusTotals struct {
	Status      Status          `json:"payment_status" db:"payment_status"`
	Count       int             `json:"count" db:"count"`
	Total       decimal.Decimal `json:"total_amount" db:"total_amount"`
	Received    decimal.Decimal `json:"amount_received" db:"amount_received"`
	Outstanding decimal.Decimal `json:"outstanding_amount" db:"outstanding_amount"`
}
