package workflow

import (
	"strings"

	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

// validateRequisitionRules collects every business-field violation of a new
// requisition into one field map.
func validateRequisitionRules(req CreateRequisitionRequest, brick requisition.BrickType) error {
	errs := map[string][]string{}

	if req.Quantity == nil || !req.Quantity.IsPositive() {
		errs["quantity"] = []string{"Quantity must be greater than zero"}
	}
	if req.EnteredPrice == nil || !req.EnteredPrice.IsPositive() {
		errs["entered_price"] = []string{"Entered price must be greater than zero"}
	}
	if req.TotalAmount == nil || !req.TotalAmount.IsPositive() {
		errs["total_amount"] = []string{"Total amount must be greater than zero"}
	}
	if req.PricePerUnit != nil && req.PricePerUnit.IsNegative() {
		errs["price_per_unit"] = []string{"Price per unit cannot be negative"}
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		errs["customer_name"] = []string{"Customer name is required"}
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		errs["customer_phone"] = []string{"Customer phone is required"}
	}
	if strings.TrimSpace(req.CustomerAddress) == "" {
		errs["customer_address"] = []string{"Customer address is required"}
	}
	if strings.TrimSpace(req.CustomerLocation) == "" {
		errs["customer_location"] = []string{"Customer location is required"}
	}
	if !brick.Active {
		errs["brick_type_id"] = []string{"Selected brick type is no longer available"}
	}

	if len(errs) > 0 {
		return shared.NewValidation(errs)
	}
	return nil
}

// validateChallanRequest checks the required challan fields after trimming.
func validateChallanRequest(req CreateChallanRequest) error {
	errs := map[string][]string{}
	if strings.TrimSpace(req.VehicleNumber) == "" {
		errs["vehicle_number"] = []string{"Vehicle number is required"}
	}
	if strings.TrimSpace(req.Location) == "" {
		errs["location"] = []string{"Location is required"}
	}
	if len(errs) > 0 {
		return shared.NewValidation(errs)
	}
	return nil
}
