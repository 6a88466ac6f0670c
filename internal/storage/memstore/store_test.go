package memstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/sequence"
	"github.com/brickflow/brickflow/internal/shared"
	"github.com/brickflow/brickflow/internal/workflow"
)

func insertOrder(ctx context.Context, t workflow.TxRepository, customer string) (requisition.Requisition, error) {
	number, err := sequence.Next(ctx, t, sequence.OrderNumber)
	if err != nil {
		return requisition.Requisition{}, err
	}
	r := requisition.Requisition{
		OrderNumber:  number,
		CustomerName: customer,
		Quantity:     decimal.NewFromInt(10),
		PricePerUnit: decimal.NewFromInt(5),
		TotalAmount:  decimal.NewFromInt(50),
		Status:       requisition.StatusSubmitted,
	}
	return r, t.InsertRequisition(ctx, &r)
}

func TestWithTxSequenceIsGapless(t *testing.T) {
	store := New()
	ctx := context.Background()

	const workers = 25
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			return store.WithTx(ctx, func(ctx context.Context, tx workflow.TxRepository) error {
				_, err := insertOrder(ctx, tx, fmt.Sprintf("customer %d", i))
				return err
			})
		})
	}
	require.NoError(t, g.Wait())

	items, total, err := store.ListRequisitions(ctx, requisition.ListFilter{Page: 1, PerPage: 100})
	require.NoError(t, err)
	require.Equal(t, workers, total)

	seen := map[string]bool{}
	for _, r := range items {
		seen[r.OrderNumber] = true
	}
	for n := 1; n <= workers; n++ {
		assert.True(t, seen[sequence.OrderNumber.Render(int64(n))], "missing %s", sequence.OrderNumber.Render(int64(n)))
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(ctx context.Context, tx workflow.TxRepository) error {
		if _, err := insertOrder(ctx, tx, "acme"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, total, err := store.ListRequisitions(ctx, requisition.ListFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	// The rolled back number is handed out again.
	err = store.WithTx(ctx, func(ctx context.Context, tx workflow.TxRepository) error {
		r, err := insertOrder(ctx, tx, "acme")
		if err == nil {
			assert.Equal(t, "ORD000001", r.OrderNumber)
		}
		return err
	})
	require.NoError(t, err)
}

func TestWithTxCanceledContext(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithTx(ctx, func(context.Context, workflow.TxRepository) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLockLastUnknownFormat(t *testing.T) {
	store := New()
	err := store.WithTx(context.Background(), func(ctx context.Context, tx workflow.TxRepository) error {
		_, err := tx.LockLast(ctx, sequence.Format{Prefix: "INV", Width: 6})
		return err
	})
	require.Error(t, err)
}

func TestActiveBrickTypeHidesInactive(t *testing.T) {
	store := New()
	ctx := context.Background()
	active := store.PutBrickType(requisition.BrickType{Name: "Red", CurrentPrice: decimal.NewFromInt(12), Active: true})
	retired := store.PutBrickType(requisition.BrickType{Name: "Grey", CurrentPrice: decimal.NewFromInt(9)})

	got, err := store.ActiveBrickType(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red", got.Name)

	_, err = store.ActiveBrickType(ctx, retired.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = store.ActiveBrickType(ctx, 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestApprovedPaymentRowIsLocked(t *testing.T) {
	store := New()
	ctx := context.Background()

	var p payment.Payment
	err := store.WithTx(ctx, func(ctx context.Context, tx workflow.TxRepository) error {
		r, err := insertOrder(ctx, tx, "acme")
		if err != nil {
			return err
		}
		c := challan.Challan{ChallanNumber: "CH-000001", RequisitionID: r.ID, Status: challan.StatusPending}
		if err := tx.InsertChallan(ctx, &c); err != nil {
			return err
		}
		p = payment.Payment{
			ChallanID:      c.ID,
			Status:         payment.StatusApproved,
			TotalAmount:    decimal.NewFromInt(50),
			AmountReceived: decimal.NewFromInt(50),
		}
		return tx.InsertPayment(ctx, &p)
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context, tx workflow.TxRepository) error {
		changed := p
		changed.Remarks = new(string)
		return tx.SavePayment(ctx, &changed)
	})
	assert.ErrorIs(t, err, shared.ErrRecordLocked)

	err = store.WithTx(ctx, func(ctx context.Context, tx workflow.TxRepository) error {
		return tx.DeletePayment(ctx, p.ID)
	})
	assert.ErrorIs(t, err, shared.ErrRecordLocked)

	stored, err := store.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Remarks)
}

func TestInsertPaymentRejectsOverpayment(t *testing.T) {
	store := New()
	err := store.WithTx(context.Background(), func(ctx context.Context, tx workflow.TxRepository) error {
		p := payment.Payment{
			ChallanID:      1,
			Status:         payment.StatusPaid,
			TotalAmount:    decimal.NewFromInt(50),
			AmountReceived: decimal.NewFromInt(51),
		}
		return tx.InsertPayment(ctx, &p)
	})
	require.Error(t, err)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, paginate(items, 1, 2))
	assert.Equal(t, []int{5}, paginate(items, 3, 2))
	assert.Empty(t, paginate(items, 4, 2))
}

func TestWithinDays(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.True(t, withinDays(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC), from, to))
	assert.True(t, withinDays(from, from, to))
	assert.False(t, withinDays(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), from, to))
}

func TestAuditTrailKeepsInsertionOrder(t *testing.T) {
	store := New()
	ctx := context.Background()
	err := store.WithTx(ctx, func(ctx context.Context, tx workflow.TxRepository) error {
		for _, action := range []string{shared.AuditPaymentCreated, shared.AuditPaymentUpdated, shared.AuditPaymentApproved} {
			if err := tx.RecordAudit(ctx, shared.AuditLog{ActorID: 1, Action: action, Entity: "payment", EntityID: "7"}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	trail, err := store.AuditTrail(ctx, "payment", "7")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, shared.AuditPaymentApproved, trail[2].Action)
	assert.False(t, trail[0].At.IsZero())
}

func TestIDsArePerTable(t *testing.T) {
	store := New()
	brick := store.PutBrickType(requisition.BrickType{Name: "Red Clay", CurrentPrice: decimal.NewFromInt(12), Active: true})
	assert.Equal(t, int64(1), brick.ID)

	var r requisition.Requisition
	var c challan.Challan
	err := store.WithTx(context.Background(), func(ctx context.Context, tx workflow.TxRepository) error {
		r = requisition.Requisition{OrderNumber: "ORD000001", BrickTypeID: brick.ID, Status: requisition.StatusSubmitted}
		if err := tx.InsertRequisition(ctx, &r); err != nil {
			return err
		}
		c = challan.Challan{ChallanNumber: "CH-000001", RequisitionID: r.ID, Status: challan.StatusPending}
		return tx.InsertChallan(ctx, &c)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, int64(1), c.ID)

	explicit := store.PutBrickType(requisition.BrickType{ID: 9, Name: "Fly Ash", Active: true})
	next := store.PutBrickType(requisition.BrickType{Name: "Hollow Block", Active: true})
	assert.Equal(t, int64(9), explicit.ID)
	assert.Equal(t, int64(10), next.ID)
}
