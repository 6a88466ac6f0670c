package shared

import (
	"errors"
	"time"
)

// Audit actions written by the workflow.
const (
	AuditRequisitionCreated = "requisition.created"
	AuditRequisitionStatus  = "requisition.status_changed"
	AuditChallanCreated     = "challan.created"
	AuditChallanUpdated     = "challan.updated"
	AuditChallanStatus      = "challan.status_changed"
	AuditChallanPrinted     = "challan.printed"
	AuditPaymentCreated     = "payment.created"
	AuditPaymentUpdated     = "payment.updated"
	AuditPaymentApproved    = "payment.approved"
	AuditPaymentDeleted     = "payment.deleted"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64          `json:"actor_id" db:"actor_id"`
	Action   string         `json:"action" db:"action"`
	Entity   string         `json:"entity" db:"entity"`
	EntityID string         `json:"entity_id" db:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty" db:"meta"`
	At       time.Time      `json:"at" db:"at"`
}

// Validate checks the mandatory columns.
func (l AuditLog) Validate() error {
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	return nil
}
