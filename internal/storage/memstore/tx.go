package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/sequence"
	"github.com/brickflow/brickflow/internal/shared"
)

// tx is the transactional view handed to WithTx callbacks. The store lock is held
// for its whole lifetime, so Lock* methods are plain reads.
type tx struct {
	st  *state
	now func() time.Time
}

// LockLast returns the identifier of the most recently inserted row for f.
func (t *tx) LockLast(_ context.Context, f sequence.Format) (string, error) {
	switch f {
	case sequence.OrderNumber:
		var last requisition.Requisition
		for _, r := range t.st.requisitions {
			if r.ID > last.ID {
				last = r
			}
		}
		return last.OrderNumber, nil
	case sequence.ChallanNumber:
		var last challan.Challan
		for _, c := range t.st.challans {
			if c.ID > last.ID {
				last = c
			}
		}
		return last.ChallanNumber, nil
	default:
		return "", fmt.Errorf("memstore: no sequence for prefix %q", f.Prefix)
	}
}

func (t *tx) ActiveBrickType(_ context.Context, id int64) (requisition.BrickType, error) {
	return t.st.activeBrickType(id)
}

// ============================================================================
// REQUISITIONS
// ============================================================================

func (t *tx) InsertRequisition(_ context.Context, r *requisition.Requisition) error {
	for _, existing := range t.st.requisitions {
		if existing.OrderNumber == r.OrderNumber {
			return fmt.Errorf("memstore: duplicate order number %s", r.OrderNumber)
		}
	}
	now := t.now()
	r.ID = t.st.id(tableRequisitions)
	r.CreatedAt, r.UpdatedAt = now, now
	t.st.requisitions[r.ID] = *r
	return nil
}

func (t *tx) GetRequisition(_ context.Context, id int64) (requisition.Requisition, error) {
	return t.st.requisition(id)
}

func (t *tx) LockRequisition(_ context.Context, id int64) (requisition.Requisition, error) {
	return t.st.requisition(id)
}

func (t *tx) UpdateRequisitionStatus(_ context.Context, id int64, status requisition.Status) error {
	r, ok := t.st.requisitions[id]
	if !ok {
		return shared.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = t.now()
	t.st.requisitions[id] = r
	return nil
}

// ============================================================================
// CHALLANS
// ============================================================================

func (t *tx) HasChallan(_ context.Context, requisitionID int64) (bool, error) {
	_, ok := t.st.challanFor(requisitionID)
	return ok, nil
}

func (t *tx) InsertChallan(_ context.Context, c *challan.Challan) error {
	if _, ok := t.st.challanFor(c.RequisitionID); ok {
		return fmt.Errorf("memstore: requisition %d already has a challan", c.RequisitionID)
	}
	now := t.now()
	c.ID = t.st.id(tableChallans)
	c.CreatedAt, c.UpdatedAt = now, now
	t.st.challans[c.ID] = *c
	return nil
}

func (t *tx) LockChallan(_ context.Context, id int64) (challan.Challan, error) {
	return t.st.challan(id)
}

func (t *tx) SaveChallan(_ context.Context, c *challan.Challan) error {
	if _, ok := t.st.challans[c.ID]; !ok {
		return shared.ErrNotFound
	}
	c.UpdatedAt = t.now()
	t.st.challans[c.ID] = *c
	return nil
}

// ============================================================================
// PAYMENTS
// ============================================================================

func (t *tx) HasPayment(_ context.Context, challanID int64) (bool, error) {
	_, ok := t.st.paymentFor(challanID)
	return ok, nil
}

func (t *tx) InsertPayment(_ context.Context, p *payment.Payment) error {
	if _, ok := t.st.paymentFor(p.ChallanID); ok {
		return fmt.Errorf("memstore: challan %d already has a payment", p.ChallanID)
	}
	if err := checkPaymentRow(*p); err != nil {
		return err
	}
	now := t.now()
	p.ID = t.st.id(tablePayments)
	p.CreatedAt, p.UpdatedAt = now, now
	t.st.payments[p.ID] = *p
	return nil
}

func (t *tx) LockPayment(_ context.Context, id int64) (payment.Payment, error) {
	return t.st.payment(id)
}

func (t *tx) SavePayment(_ context.Context, p *payment.Payment) error {
	stored, ok := t.st.payments[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.IsLocked() {
		return shared.ErrRecordLocked
	}
	if err := checkPaymentRow(*p); err != nil {
		return err
	}
	p.UpdatedAt = t.now()
	t.st.payments[p.ID] = *p
	return nil
}

func (t *tx) DeletePayment(_ context.Context, id int64) error {
	stored, ok := t.st.payments[id]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.IsLocked() {
		return shared.ErrRecordLocked
	}
	delete(t.st.payments, id)
	return nil
}

// checkPaymentRow mirrors the table CHECK constraints.
func checkPaymentRow(p payment.Payment) error {
	switch {
	case !p.Status.IsValid():
		return fmt.Errorf("memstore: invalid payment status %q", p.Status)
	case !p.TotalAmount.IsPositive():
		return fmt.Errorf("memstore: payment total must be positive")
	case p.AmountReceived.IsNegative() || p.AmountReceived.GreaterThan(p.TotalAmount):
		return fmt.Errorf("memstore: amount received %s outside [0, %s]", p.AmountReceived, p.TotalAmount)
	}
	return nil
}

// ============================================================================
// AUDIT
// ============================================================================

func (t *tx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.At.IsZero() {
		log.At = t.now()
	}
	t.st.audit = append(t.st.audit, log)
	return nil
}
