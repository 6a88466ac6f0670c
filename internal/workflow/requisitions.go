package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/money"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/sequence"
	"github.com/brickflow/brickflow/internal/shared"
)

const entityRequisition = "requisition"

// ============================================================================
// REQUISITION OPERATIONS
// ============================================================================

// CreateRequisition submits a new order for a Sales Executive. The brick type must
// be active, the submitted total must match quantity x entered price, and a
// client-supplied price per unit must still match the current brick price.
func (s *Service) CreateRequisition(ctx context.Context, actor shared.Actor, req CreateRequisitionRequest) (_ *requisition.Requisition, err error) {
	ctx, finish := s.start(ctx, "create_requisition", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleSalesExecutive); err != nil {
		return nil, err
	}

	var created requisition.Requisition
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		brick, err := tx.ActiveBrickType(ctx, req.BrickTypeID)
		if err != nil {
			return notFound(err, "brick type", req.BrickTypeID)
		}

		quantity, entered, total := decimalOrZero(req.Quantity), decimalOrZero(req.EnteredPrice), decimalOrZero(req.TotalAmount)
		if err := money.VerifyTotal(quantity, entered, total); err != nil {
			return err
		}
		if err := validateRequisitionRules(req, brick); err != nil {
			return err
		}
		if req.PricePerUnit != nil {
			if err := money.VerifyPriceUnchanged(brick.CurrentPrice, *req.PricePerUnit); err != nil {
				return err
			}
		}

		number, err := sequence.Next(ctx, tx, sequence.OrderNumber)
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}

		r := requisition.Requisition{
			OrderNumber:      number,
			Date:             s.today(),
			UserID:           actor.UserID,
			UserName:         actor.Name,
			BrickTypeID:      brick.ID,
			BrickTypeName:    brick.Name,
			Quantity:         quantity,
			PricePerUnit:     brick.CurrentPrice,
			EnteredPrice:     entered,
			CustomerName:     strings.TrimSpace(req.CustomerName),
			CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
			CustomerAddress:  strings.TrimSpace(req.CustomerAddress),
			CustomerLocation: strings.TrimSpace(req.CustomerLocation),
			Status:           requisition.StatusSubmitted,
		}
		r.RecalculateTotal()

		if err := tx.InsertRequisition(ctx, &r); err != nil {
			return fmt.Errorf("insert requisition: %w", err)
		}
		if err := audit(ctx, tx, actor, shared.AuditRequisitionCreated, entityRequisition, r.ID, map[string]any{
			"order_number": r.OrderNumber,
			"total_amount": money.Format(r.TotalAmount),
		}); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("requisition created",
		zap.String("order_number", created.OrderNumber),
		zap.Int64("user_id", actor.UserID),
	)
	return &created, nil
}

// CheckBrickPrice reports whether submitted still matches the brick's current price.
// A missing or inactive brick type counts as a price change.
func (s *Service) CheckBrickPrice(ctx context.Context, brickTypeID int64, submitted decimal.Decimal) (*PriceCheck, error) {
	check := &PriceCheck{BrickTypeID: brickTypeID, SubmittedPrice: submitted}
	brick, err := s.repo.ActiveBrickType(ctx, brickTypeID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("load brick type: %w", err)
		}
		check.PriceChanged = true
		check.Message = "Brick type is no longer available"
		return check, nil
	}
	current := brick.CurrentPrice
	check.CurrentPrice = &current
	if err := money.VerifyPriceUnchanged(current, submitted); err != nil {
		check.PriceChanged = true
		if be, ok := shared.AsBusinessError(err); ok {
			check.Message = be.Message
		}
	}
	return check, nil
}

// GetRequisition returns one requisition. Sales Executives only see their own.
func (s *Service) GetRequisition(ctx context.Context, actor shared.Actor, id int64) (*requisition.Requisition, error) {
	r, err := s.repo.GetRequisition(ctx, id)
	if err != nil {
		return nil, notFound(err, entityRequisition, id)
	}
	if actor.Role == shared.RoleSalesExecutive && r.UserID != actor.UserID {
		return nil, shared.NewNotFound(entityRequisition, id)
	}
	return &r, nil
}

// ListRequisitions returns requisitions newest first. Sales Executives only see their own.
func (s *Service) ListRequisitions(ctx context.Context, actor shared.Actor, filter requisition.ListFilter) (*RequisitionPage, error) {
	if actor.Role == shared.RoleSalesExecutive {
		filter.UserID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidation(map[string][]string{"status": {"The selected status is invalid."}})
	}
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)

	items, total, err := s.repo.ListRequisitions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list requisitions: %w", err)
	}
	return &RequisitionPage{Items: items, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// PendingRequisitions is the logistics queue: submitted requisitions with no
// challan, oldest first.
func (s *Service) PendingRequisitions(ctx context.Context, actor shared.Actor) ([]requisition.Requisition, error) {
	if err := actor.RequireRole(shared.RoleLogistics); err != nil {
		return nil, err
	}
	items, err := s.repo.PendingRequisitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending requisitions: %w", err)
	}
	return items, nil
}

// UpdateRequisition always fails: requisitions are immutable once submitted.
func (s *Service) UpdateRequisition(ctx context.Context, actor shared.Actor, id int64) error {
	return s.rejectRequisitionMutation(ctx, actor, id)
}

// DeleteRequisition always fails: requisitions are never deleted.
func (s *Service) DeleteRequisition(ctx context.Context, actor shared.Actor, id int64) error {
	return s.rejectRequisitionMutation(ctx, actor, id)
}

func (s *Service) rejectRequisitionMutation(ctx context.Context, actor shared.Actor, id int64) error {
	r, err := s.GetRequisition(ctx, actor, id)
	if err != nil {
		return err
	}
	return shared.NewRecordImmutable("Requisitions are immutable once submitted", "requisition_status").
		WithField("status", string(r.Status))
}

// CompleteRequisition closes a paid requisition. Admin only.
func (s *Service) CompleteRequisition(ctx context.Context, actor shared.Actor, id int64) (_ *requisition.Requisition, err error) {
	ctx, finish := s.start(ctx, "complete_requisition", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleAdmin); err != nil {
		return nil, err
	}

	var out requisition.Requisition
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := tx.LockRequisition(ctx, id)
		if err != nil {
			return notFound(err, entityRequisition, id)
		}
		if err := advanceRequisition(ctx, tx, actor, &r, requisition.StatusComplete); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// advanceRequisition moves r to target through the status chain and persists it.
func advanceRequisition(ctx context.Context, tx TxRepository, actor shared.Actor, r *requisition.Requisition, target requisition.Status) error {
	from := r.Status
	if !r.UpdateStatus(target) {
		return shared.NewInvalidTransition("requisition_status", string(from), string(target))
	}
	if err := tx.UpdateRequisitionStatus(ctx, r.ID, r.Status); err != nil {
		return fmt.Errorf("update requisition status: %w", err)
	}
	return audit(ctx, tx, actor, shared.AuditRequisitionStatus, entityRequisition, r.ID, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
