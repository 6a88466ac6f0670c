package workflow

import (
	"context"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/sequence"
	"github.com/brickflow/brickflow/internal/shared"
)

// Repository is the storage the orchestrator reads from and opens units of work on.
// Lookups return shared.ErrNotFound when nothing matches.
type Repository interface {
	// WithTx runs fn in one transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ActiveBrickType(ctx context.Context, id int64) (requisition.BrickType, error)

	GetRequisition(ctx context.Context, id int64) (requisition.Requisition, error)
	ListRequisitions(ctx context.Context, filter requisition.ListFilter) ([]requisition.Requisition, int, error)
	// PendingRequisitions lists submitted requisitions without a challan, oldest first.
	PendingRequisitions(ctx context.Context) ([]requisition.Requisition, error)

	GetChallan(ctx context.Context, id int64) (challan.Challan, error)
	ListChallans(ctx context.Context, filter challan.ListFilter) ([]challan.Challan, int, error)
	// PendingChallansForPayment lists pending challans that have no payment yet.
	PendingChallansForPayment(ctx context.Context) ([]challan.Challan, error)

	GetPayment(ctx context.Context, id int64) (payment.Payment, error)
	ListPayments(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, int, error)
	PaymentTotalsByStatus(ctx context.Context) ([]payment.StatusTotals, error)
	AuditTrail(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error)
}

// TxRepository is the transactional view used inside WithTx. Lock* methods take a
// row lock held until the transaction ends.
type TxRepository interface {
	sequence.Locker

	ActiveBrickType(ctx context.Context, id int64) (requisition.BrickType, error)

	InsertRequisition(ctx context.Context, r *requisition.Requisition) error
	GetRequisition(ctx context.Context, id int64) (requisition.Requisition, error)
	LockRequisition(ctx context.Context, id int64) (requisition.Requisition, error)
	UpdateRequisitionStatus(ctx context.Context, id int64, status requisition.Status) error

	HasChallan(ctx context.Context, requisitionID int64) (bool, error)
	InsertChallan(ctx context.Context, c *challan.Challan) error
	LockChallan(ctx context.Context, id int64) (challan.Challan, error)
	SaveChallan(ctx context.Context, c *challan.Challan) error

	HasPayment(ctx context.Context, challanID int64) (bool, error)
	InsertPayment(ctx context.Context, p *payment.Payment) error
	LockPayment(ctx context.Context, id int64) (payment.Payment, error)
	// SavePayment and DeletePayment return shared.ErrRecordLocked when the persisted
	// row is approved.
	SavePayment(ctx context.Context, p *payment.Payment) error
	DeletePayment(ctx context.Context, id int64) error

	RecordAudit(ctx context.Context, log shared.AuditLog) error
}
