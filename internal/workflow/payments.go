package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/money"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

const entityPayment = "payment"

// ============================================================================
// PAYMENT OPERATIONS
// ============================================================================

// CreatePayment records the single payment of a pending challan. The challan is
// marked delivered and its requisition advanced to delivered in the same
// transaction. A missing total defaults to the requisition total.
func (s *Service) CreatePayment(ctx context.Context, actor shared.Actor, req CreatePaymentRequest) (_ *payment.Payment, err error) {
	ctx, finish := s.start(ctx, "create_payment", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return nil, err
	}
	if req.Method != nil && !req.Method.IsValid() {
		return nil, shared.NewValidation(map[string][]string{
			"payment_method": {fmt.Sprintf("The selected payment method %q is invalid.", *req.Method)},
		})
	}

	var created payment.Payment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.LockChallan(ctx, req.ChallanID)
		if err != nil {
			return notFound(err, entityChallan, req.ChallanID)
		}
		if c.Status != challan.StatusPending {
			return shared.NewBusinessRule("Can only create payment for pending challans", "delivery_challan_id").
				WithField("delivery_status", string(c.Status))
		}
		exists, err := tx.HasPayment(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("check existing payment: %w", err)
		}
		if exists {
			return shared.NewBusinessRule("Payment record already exists for this challan", "delivery_challan_id")
		}

		r, err := tx.LockRequisition(ctx, c.RequisitionID)
		if err != nil {
			return notFound(err, entityRequisition, c.RequisitionID)
		}
		total := r.TotalAmount
		if req.TotalAmount != nil {
			total = *req.TotalAmount
		}

		p, err := payment.New(c.ID, total, decimalOrZero(req.AmountReceived))
		if err != nil {
			return err
		}
		p.Method = req.Method
		p.ReferenceNumber = req.ReferenceNumber
		p.Remarks = req.Remarks
		paidOn := s.today()
		if req.PaymentDate != nil {
			paidOn = req.PaymentDate.Time()
		}
		p.PaymentDate = &paidOn

		if err := tx.InsertPayment(ctx, p); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := audit(ctx, tx, actor, shared.AuditPaymentCreated, entityPayment, p.ID, map[string]any{
			"delivery_challan_id": c.ID,
			"total_amount":        money.Format(p.TotalAmount),
			"amount_received":     money.Format(p.AmountReceived),
			"payment_status":      string(p.Status),
		}); err != nil {
			return err
		}

		from := c.Status
		if c.MarkDeliveredOnPayment(s.today()) {
			if err := tx.SaveChallan(ctx, &c); err != nil {
				return fmt.Errorf("save challan: %w", err)
			}
			if err := audit(ctx, tx, actor, shared.AuditChallanStatus, entityChallan, c.ID, map[string]any{
				"from": string(from),
				"to":   string(c.Status),
			}); err != nil {
				return err
			}
		}
		if r.Status == requisition.StatusAssigned {
			if err := advanceRequisition(ctx, tx, actor, &r, requisition.StatusDelivered); err != nil {
				return err
			}
		}
		created = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		zap.Int64("payment_id", created.ID),
		zap.Int64("delivery_challan_id", created.ChallanID),
		zap.String("payment_status", string(created.Status)),
	)
	return &created, nil
}

// UpdatePayment applies a partial update. Approved payments reject every change.
func (s *Service) UpdatePayment(ctx context.Context, actor shared.Actor, id int64, req UpdatePaymentRequest) (_ *payment.Payment, err error) {
	ctx, finish := s.start(ctx, "update_payment", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return nil, err
	}

	var out payment.Payment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPayment(ctx, id)
		if err != nil {
			return notFound(err, entityPayment, id)
		}
		from := p.Status
		if err := p.Apply(req.Changes(), actor.UserID, s.now()); err != nil {
			return err
		}
		if err := savePayment(ctx, tx, &p); err != nil {
			return err
		}
		if err := audit(ctx, tx, actor, shared.AuditPaymentUpdated, entityPayment, p.ID, map[string]any{
			"from":            string(from),
			"to":              string(p.Status),
			"amount_received": money.Format(p.AmountReceived),
		}); err != nil {
			return err
		}
		if p.Status == payment.StatusApproved {
			if err := s.settleRequisition(ctx, tx, actor, p); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApprovePayment locks a fully paid payment and advances its requisition to paid.
func (s *Service) ApprovePayment(ctx context.Context, actor shared.Actor, id int64) (_ *payment.Payment, err error) {
	ctx, finish := s.start(ctx, "approve_payment", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return nil, err
	}

	var out payment.Payment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPayment(ctx, id)
		if err != nil {
			return notFound(err, entityPayment, id)
		}
		if err := p.Approve(actor.UserID, s.now()); err != nil {
			return err
		}
		if err := savePayment(ctx, tx, &p); err != nil {
			return err
		}
		if err := audit(ctx, tx, actor, shared.AuditPaymentApproved, entityPayment, p.ID, map[string]any{
			"approved_by":  actor.UserID,
			"total_amount": money.Format(p.TotalAmount),
		}); err != nil {
			return err
		}
		if err := s.settleRequisition(ctx, tx, actor, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment approved",
		zap.Int64("payment_id", out.ID),
		zap.Int64("approved_by", actor.UserID),
	)
	return &out, nil
}

// DeletePayment removes an unapproved payment.
func (s *Service) DeletePayment(ctx context.Context, actor shared.Actor, id int64) (err error) {
	ctx, finish := s.start(ctx, "delete_payment", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return err
	}

	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPayment(ctx, id)
		if err != nil {
			return notFound(err, entityPayment, id)
		}
		if p.IsLocked() {
			return shared.NewApprovedPaymentLocked()
		}
		if err := tx.DeletePayment(ctx, id); err != nil {
			if errors.Is(err, shared.ErrRecordLocked) {
				return shared.NewApprovedPaymentLocked()
			}
			return fmt.Errorf("delete payment: %w", err)
		}
		return audit(ctx, tx, actor, shared.AuditPaymentDeleted, entityPayment, id, map[string]any{
			"delivery_challan_id": p.ChallanID,
			"payment_status":      string(p.Status),
		})
	})
}

// GetPayment returns one payment.
func (s *Service) GetPayment(ctx context.Context, id int64) (*payment.Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, notFound(err, entityPayment, id)
	}
	return &p, nil
}

// ListPayments returns payments newest first.
func (s *Service) ListPayments(ctx context.Context, filter payment.ListFilter) (*PaymentPage, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidation(map[string][]string{"payment_status": {"The selected payment status is invalid."}})
	}
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)

	items, total, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &PaymentPage{Items: items, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// PendingChallansForPayment is the accounts queue: pending challans without a payment.
func (s *Service) PendingChallansForPayment(ctx context.Context, actor shared.Actor) ([]challan.Challan, error) {
	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return nil, err
	}
	items, err := s.repo.PendingChallansForPayment(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challans awaiting payment: %w", err)
	}
	return items, nil
}

// PaymentSummary aggregates payments by status. Outstanding counts the unpaid
// balance of pending and partial payments.
func (s *Service) PaymentSummary(ctx context.Context, actor shared.Actor) (*PaymentSummary, error) {
	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return nil, err
	}
	totals, err := s.repo.PaymentTotalsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment totals: %w", err)
	}

	summary := &PaymentSummary{
		ByStatus:         totals,
		TotalAmount:      decimal.Zero,
		TotalReceived:    decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}
	for _, t := range totals {
		summary.TotalPayments += t.Count
		summary.TotalAmount = summary.TotalAmount.Add(t.Total)
		summary.TotalReceived = summary.TotalReceived.Add(t.Received)
		if t.Status == payment.StatusPending || t.Status == payment.StatusPartial {
			summary.TotalOutstanding = summary.TotalOutstanding.Add(t.Total.Sub(t.Received))
		}
	}
	return summary, nil
}

// PaymentHistory returns a payment with its audit timeline.
func (s *Service) PaymentHistory(ctx context.Context, actor shared.Actor, id int64) (*PaymentHistory, error) {
	if err := actor.RequireRole(shared.RoleAccounts, shared.RoleAdmin); err != nil {
		return nil, err
	}
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, notFound(err, entityPayment, id)
	}
	events, err := s.repo.AuditTrail(ctx, entityPayment, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("payment audit trail: %w", err)
	}
	return &PaymentHistory{Payment: p, Events: events}, nil
}

// settleRequisition advances the requisition behind an approved payment to paid.
func (s *Service) settleRequisition(ctx context.Context, tx TxRepository, actor shared.Actor, p payment.Payment) error {
	c, err := tx.LockChallan(ctx, p.ChallanID)
	if err != nil {
		return notFound(err, entityChallan, p.ChallanID)
	}
	r, err := tx.LockRequisition(ctx, c.RequisitionID)
	if err != nil {
		return notFound(err, entityRequisition, c.RequisitionID)
	}
	if r.Status == requisition.StatusPaid {
		return nil
	}
	return advanceRequisition(ctx, tx, actor, &r, requisition.StatusPaid)
}

func savePayment(ctx context.Context, tx TxRepository, p *payment.Payment) error {
	if err := tx.SavePayment(ctx, p); err != nil {
		if errors.Is(err, shared.ErrRecordLocked) {
			return shared.NewApprovedPaymentLocked()
		}
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}
