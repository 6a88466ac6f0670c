package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/sequence"
	"github.com/brickflow/brickflow/internal/shared"
)

const entityChallan = "delivery challan"

// ============================================================================
// CHALLAN OPERATIONS
// ============================================================================

// CreateChallan creates the delivery challan for a submitted requisition and moves
// the requisition to assigned in the same transaction.
func (s *Service) CreateChallan(ctx context.Context, actor shared.Actor, req CreateChallanRequest) (_ *challan.Challan, err error) {
	ctx, finish := s.start(ctx, "create_challan", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleLogistics); err != nil {
		return nil, err
	}
	if err := validateChallanRequest(req); err != nil {
		return nil, err
	}

	var created challan.Challan
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := tx.LockRequisition(ctx, req.RequisitionID)
		if err != nil {
			return notFound(err, entityRequisition, req.RequisitionID)
		}
		if r.Status != requisition.StatusSubmitted {
			return shared.NewBusinessRule("Only submitted requisitions can have delivery challans created.", "requisition").
				WithField("requisition_status", string(r.Status))
		}
		exists, err := tx.HasChallan(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("check existing challan: %w", err)
		}
		if exists {
			return shared.NewBusinessRule("This requisition already has a delivery challan.", "requisition")
		}

		number, err := sequence.Next(ctx, tx, sequence.ChallanNumber)
		if err != nil {
			return fmt.Errorf("generate challan number: %w", err)
		}

		c := challan.Challan{
			ChallanNumber: number,
			RequisitionID: r.ID,
			OrderNumber:   r.OrderNumber,
			Date:          s.today(),
			VehicleNumber: strings.TrimSpace(req.VehicleNumber),
			DriverName:    req.DriverName,
			VehicleType:   req.VehicleType,
			Location:      strings.TrimSpace(req.Location),
			Remarks:       req.Remarks,
			Status:        challan.StatusPending,
			PrintCount:    0,
		}
		if err := tx.InsertChallan(ctx, &c); err != nil {
			return fmt.Errorf("insert challan: %w", err)
		}
		if err := audit(ctx, tx, actor, shared.AuditChallanCreated, entityChallan, c.ID, map[string]any{
			"challan_number": c.ChallanNumber,
			"requisition_id": r.ID,
		}); err != nil {
			return err
		}
		if err := advanceRequisition(ctx, tx, actor, &r, requisition.StatusAssigned); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery challan created",
		zap.String("challan_number", created.ChallanNumber),
		zap.String("order_number", created.OrderNumber),
	)
	return &created, nil
}

// UpdateDeliveryStatus moves a challan along the delivery table. Reaching delivered
// also advances the linked requisition to delivered.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, actor shared.Actor, id int64, req UpdateDeliveryStatusRequest) (_ *challan.Challan, err error) {
	ctx, finish := s.start(ctx, "update_delivery_status", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleLogistics); err != nil {
		return nil, err
	}

	var out challan.Challan
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.LockChallan(ctx, id)
		if err != nil {
			return notFound(err, entityChallan, id)
		}
		from := c.Status
		if !c.UpdateDeliveryStatus(req.Status, s.today()) {
			return shared.NewInvalidTransition("delivery_status", string(from), string(req.Status))
		}
		if req.Remarks != nil {
			c.Remarks = req.Remarks
		}
		if err := tx.SaveChallan(ctx, &c); err != nil {
			return fmt.Errorf("save challan: %w", err)
		}
		if err := audit(ctx, tx, actor, shared.AuditChallanStatus, entityChallan, c.ID, map[string]any{
			"from": string(from),
			"to":   string(c.Status),
		}); err != nil {
			return err
		}

		if c.Status == challan.StatusDelivered {
			r, err := tx.LockRequisition(ctx, c.RequisitionID)
			if err != nil {
				return notFound(err, entityRequisition, c.RequisitionID)
			}
			if err := advanceRequisition(ctx, tx, actor, &r, requisition.StatusDelivered); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateChallan edits vehicle, driver, location and remarks until delivery.
func (s *Service) UpdateChallan(ctx context.Context, actor shared.Actor, id int64, req UpdateChallanRequest) (_ *challan.Challan, err error) {
	ctx, finish := s.start(ctx, "update_challan", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleLogistics); err != nil {
		return nil, err
	}

	var out challan.Challan
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.LockChallan(ctx, id)
		if err != nil {
			return notFound(err, entityChallan, id)
		}
		if !c.Status.CanEdit() {
			return shared.NewRecordImmutable("Cannot update delivered challan", "delivery_status")
		}

		errs := map[string][]string{}
		changed := []string{}
		if req.VehicleNumber != nil {
			if v := strings.TrimSpace(*req.VehicleNumber); v == "" {
				errs["vehicle_number"] = []string{"Vehicle number is required"}
			} else {
				c.VehicleNumber = v
				changed = append(changed, "vehicle_number")
			}
		}
		if req.Location != nil {
			if v := strings.TrimSpace(*req.Location); v == "" {
				errs["location"] = []string{"Location is required"}
			} else {
				c.Location = v
				changed = append(changed, "location")
			}
		}
		if len(errs) > 0 {
			return shared.NewValidation(errs)
		}
		if req.DriverName != nil {
			c.DriverName = req.DriverName
			changed = append(changed, "driver_name")
		}
		if req.VehicleType != nil {
			c.VehicleType = req.VehicleType
			changed = append(changed, "vehicle_type")
		}
		if req.Remarks != nil {
			c.Remarks = req.Remarks
			changed = append(changed, "remarks")
		}
		if len(changed) == 0 {
			out = c
			return nil
		}

		if err := tx.SaveChallan(ctx, &c); err != nil {
			return fmt.Errorf("save challan: %w", err)
		}
		if err := audit(ctx, tx, actor, shared.AuditChallanUpdated, entityChallan, c.ID, map[string]any{
			"fields": changed,
		}); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteChallan always fails: challans are kept for the audit trail.
func (s *Service) DeleteChallan(ctx context.Context, actor shared.Actor, id int64) error {
	if err := actor.RequireRole(shared.RoleLogistics); err != nil {
		return err
	}
	c, err := s.repo.GetChallan(ctx, id)
	if err != nil {
		return notFound(err, entityChallan, id)
	}
	return shared.NewRecordImmutable("Delivery challans cannot be deleted", "delivery_status").
		WithField("status", string(c.Status))
}

// PrintChallan builds the printable document and records the print.
func (s *Service) PrintChallan(ctx context.Context, actor shared.Actor, id int64) (_ *challan.Document, err error) {
	ctx, finish := s.start(ctx, "print_challan", actor)
	defer finish(&err)

	if err := actor.RequireRole(shared.RoleLogistics); err != nil {
		return nil, err
	}

	var doc challan.Document
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.LockChallan(ctx, id)
		if err != nil {
			return notFound(err, entityChallan, id)
		}
		r, err := tx.GetRequisition(ctx, c.RequisitionID)
		if err != nil {
			return notFound(err, entityRequisition, c.RequisitionID)
		}

		doc = challan.BuildDocument(c, r, s.now())
		c.IncrementPrintCount()
		if err := tx.SaveChallan(ctx, &c); err != nil {
			return fmt.Errorf("save challan: %w", err)
		}
		return audit(ctx, tx, actor, shared.AuditChallanPrinted, entityChallan, c.ID, map[string]any{
			"print_count": c.PrintCount,
			"document_id": doc.PrintInfo.DocumentID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetChallan returns one challan.
func (s *Service) GetChallan(ctx context.Context, id int64) (*challan.Challan, error) {
	c, err := s.repo.GetChallan(ctx, id)
	if err != nil {
		return nil, notFound(err, entityChallan, id)
	}
	return &c, nil
}

// ListChallans returns challans newest first.
func (s *Service) ListChallans(ctx context.Context, filter challan.ListFilter) (*ChallanPage, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidation(map[string][]string{"delivery_status": {"The selected delivery status is invalid."}})
	}
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)

	items, total, err := s.repo.ListChallans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list challans: %w", err)
	}
	return &ChallanPage{Items: items, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}
