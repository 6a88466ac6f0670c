package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickflow/brickflow/internal/money"
	"github.com/brickflow/brickflow/internal/shared"
)

// Changes is a partial update to a payment. Nil fields are left untouched.
type Changes struct {
	Method          *Method
	AmountReceived  *decimal.Decimal
	PaymentDate     *time.Time
	ReferenceNumber *string
	Remarks         *string
	Status          *Status
}

// Apply validates and applies ch on behalf of actorID. An approved payment rejects
// every change. A new received amount is bounds-checked and re-derives the status;
// an explicit status is then checked against the transition table from the status
// it would otherwise have. Requesting approved goes through Approve. p is left
// unchanged when an error is returned.
func (p *Payment) Apply(ch Changes, actorID int64, at time.Time) error {
	if p.IsLocked() {
		return shared.NewApprovedPaymentLocked()
	}
	next := *p
	if ch.AmountReceived != nil {
		received := money.Round(*ch.AmountReceived)
		if received.IsNegative() {
			return shared.NewValidation(map[string][]string{
				"amount_received": {"The amount received must be at least 0."},
			})
		}
		if err := money.VerifyPaymentWithinBounds(next.TotalAmount, next.AmountReceived, received); err != nil {
			return err
		}
		next.AmountReceived = received
		next.Rederive()
	}
	if ch.Status != nil && *ch.Status != next.Status {
		target := *ch.Status
		if !target.IsValid() || !next.Status.CanTransitionTo(target) {
			return shared.NewInvalidTransition("payment_status", string(next.Status), string(target))
		}
		if target == StatusApproved {
			if err := next.Approve(actorID, at); err != nil {
				return err
			}
		} else {
			next.Status = target
		}
	}
	if ch.Method != nil {
		if !ch.Method.IsValid() {
			return shared.NewValidation(map[string][]string{
				"payment_method": {fmt.Sprintf("The selected payment method %q is invalid.", *ch.Method)},
			})
		}
		m := *ch.Method
		next.Method = &m
	}
	if ch.PaymentDate != nil {
		d := *ch.PaymentDate
		next.PaymentDate = &d
	}
	if ch.ReferenceNumber != nil {
		next.ReferenceNumber = ch.ReferenceNumber
	}
	if ch.Remarks != nil {
		next.Remarks = ch.Remarks
	}
	*p = next
	return nil
}

// New builds a payment for a challan with a derived status. A zero total must be
// resolved by the caller before calling New.
func New(challanID int64, total, received decimal.Decimal) (*Payment, error) {
	total = money.Round(total)
	received = money.Round(received)
	fields := map[string][]string{}
	if !total.IsPositive() {
		fields["total_amount"] = []string{"The total amount must be greater than 0."}
	}
	if received.IsNegative() {
		fields["amount_received"] = []string{"The amount received must be at least 0."}
	}
	if len(fields) > 0 {
		return nil, shared.NewValidation(fields)
	}
	if err := money.VerifyPaymentWithinBounds(total, decimal.Zero, received); err != nil {
		return nil, err
	}
	p := &Payment{ChallanID: challanID, TotalAmount: total, AmountReceived: received}
	p.Rederive()
	return p, nil
}

// Approve locks a fully paid payment, recording who approved it and when.
func (p *Payment) Approve(approverID int64, at time.Time) error {
	if p.IsLocked() {
		return shared.NewRecordImmutable("Payment is already approved", "payment_status")
	}
	if !p.IsFullyPaid() {
		return shared.NewBusinessRule("Can only approve fully paid payments", "payment_status").
			WithField("total_amount", money.Format(p.TotalAmount)).
			WithField("amount_received", money.Format(p.AmountReceived))
	}
	p.Status = StatusApproved
	p.ApprovedBy = &approverID
	p.ApprovedAt = &at
	return nil
}
