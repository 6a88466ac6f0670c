package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
	"github.com/brickflow/brickflow/internal/storage/memstore"
	"github.com/brickflow/brickflow/internal/workflow"
)

var (
	sales     = shared.Actor{UserID: 10, Name: "Ravi", Role: shared.RoleSalesExecutive}
	sales2    = shared.Actor{UserID: 11, Name: "Meera", Role: shared.RoleSalesExecutive}
	logistics = shared.Actor{UserID: 20, Name: "Kiran", Role: shared.RoleLogistics}
	accounts  = shared.Actor{UserID: 30, Name: "Asha", Role: shared.RoleAccounts}
	admin     = shared.Actor{UserID: 40, Name: "Dev", Role: shared.RoleAdmin}

	today = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	store *memstore.Store
	svc   *workflow.Service
	brick requisition.BrickType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	store.SetClock(func() time.Time { return today })
	brick := store.PutBrickType(requisition.BrickType{Name: "Red Clay", CurrentPrice: dec("12.50"), Active: true})

	svc := workflow.NewService(store, nil)
	svc.SetClock(func() time.Time { return today })
	return &fixture{store: store, svc: svc, brick: brick}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func (f *fixture) requisitionRequest() workflow.CreateRequisitionRequest {
	return workflow.CreateRequisitionRequest{
		BrickTypeID:      f.brick.ID,
		Quantity:         decp("1000"),
		PricePerUnit:     decp("12.50"),
		EnteredPrice:     decp("12.00"),
		TotalAmount:      decp("12000.00"),
		CustomerName:     "  Acme Builders ",
		CustomerPhone:    "9876543210",
		CustomerAddress:  "12 Kiln Road",
		CustomerLocation: "Pune",
	}
}

func (f *fixture) submit(t *testing.T) *requisition.Requisition {
	t.Helper()
	r, err := f.svc.CreateRequisition(context.Background(), sales, f.requisitionRequest())
	require.NoError(t, err)
	return r
}

func (f *fixture) dispatch(t *testing.T, r *requisition.Requisition) *challan.Challan {
	t.Helper()
	c, err := f.svc.CreateChallan(context.Background(), logistics, workflow.CreateChallanRequest{
		RequisitionID: r.ID,
		VehicleNumber: " MH12AB1234 ",
		Location:      "Pune",
	})
	require.NoError(t, err)
	return c
}

func requireKind(t *testing.T, err error, kind shared.ErrorKind) *shared.BusinessError {
	t.Helper()
	require.Error(t, err)
	be, ok := shared.AsBusinessError(err)
	require.True(t, ok, "expected business error, got %v", err)
	require.Equal(t, kind, be.Kind, be.Message)
	return be
}

func TestOrderToCashLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.submit(t)
	assert.Equal(t, "ORD000001", r.OrderNumber)
	assert.Equal(t, requisition.StatusSubmitted, r.Status)
	assert.Equal(t, "Acme Builders", r.CustomerName)
	assert.True(t, r.TotalAmount.Equal(dec("12000")))
	assert.True(t, r.PricePerUnit.Equal(dec("12.50")))
	assert.Equal(t, "Red Clay", r.BrickTypeName)

	pending, err := f.svc.PendingRequisitions(ctx, logistics)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	c := f.dispatch(t, r)
	assert.Equal(t, "CH-000001", c.ChallanNumber)
	assert.Equal(t, challan.StatusPending, c.Status)
	assert.Equal(t, "MH12AB1234", c.VehicleNumber)

	got, err := f.svc.GetRequisition(ctx, admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, requisition.StatusAssigned, got.Status)

	pending, err = f.svc.PendingRequisitions(ctx, logistics)
	require.NoError(t, err)
	assert.Empty(t, pending)

	queue, err := f.svc.PendingChallansForPayment(ctx, accounts)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	p, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{
		ChallanID:      c.ID,
		AmountReceived: decp("5000"),
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPartial, p.Status)
	assert.True(t, p.TotalAmount.Equal(dec("12000")))
	require.NotNil(t, p.PaymentDate)

	delivered, err := f.svc.GetChallan(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, challan.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveryDate)

	got, err = f.svc.GetRequisition(ctx, admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, requisition.StatusDelivered, got.Status)

	p, err = f.svc.UpdatePayment(ctx, accounts, p.ID, workflow.UpdatePaymentRequest{AmountReceived: decp("12000")})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, p.Status)

	p, err = f.svc.ApprovePayment(ctx, accounts, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, p.Status)
	require.NotNil(t, p.ApprovedBy)
	assert.Equal(t, accounts.UserID, *p.ApprovedBy)

	got, err = f.svc.GetRequisition(ctx, admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, requisition.StatusPaid, got.Status)

	done, err := f.svc.CompleteRequisition(ctx, admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, requisition.StatusComplete, done.Status)

	history, err := f.svc.PaymentHistory(ctx, admin, p.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(history.Events))
	for _, e := range history.Events {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{shared.AuditPaymentCreated, shared.AuditPaymentUpdated, shared.AuditPaymentApproved}, actions)
}

func TestApprovedPaymentIsPermanentlyLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.dispatch(t, f.submit(t))

	p, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID, AmountReceived: decp("12000")})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, p.Status)
	_, err = f.svc.ApprovePayment(ctx, accounts, p.ID)
	require.NoError(t, err)

	remarks := "late edit"
	_, err = f.svc.UpdatePayment(ctx, accounts, p.ID, workflow.UpdatePaymentRequest{Remarks: &remarks})
	be := requireKind(t, err, shared.KindRecordImmutable)
	assert.Equal(t, "Approved payment records cannot be modified", be.Message)

	err = f.svc.DeletePayment(ctx, accounts, p.ID)
	requireKind(t, err, shared.KindRecordImmutable)

	_, err = f.svc.ApprovePayment(ctx, accounts, p.ID)
	requireKind(t, err, shared.KindRecordImmutable)

	stored, err := f.svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, stored.Status)
	assert.Nil(t, stored.Remarks)
}

func TestApproveRequiresFullPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.dispatch(t, f.submit(t))

	p, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID, AmountReceived: decp("100")})
	require.NoError(t, err)

	_, err = f.svc.ApprovePayment(ctx, accounts, p.ID)
	requireKind(t, err, shared.KindBusinessRule)
}

func TestCreateRequisitionCalculation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	within := f.requisitionRequest()
	within.TotalAmount = decp("12000.01")
	r, err := f.svc.CreateRequisition(ctx, sales, within)
	require.NoError(t, err)
	assert.True(t, r.TotalAmount.Equal(dec("12000")), "total is recomputed server side")

	off := f.requisitionRequest()
	off.TotalAmount = decp("12000.02")
	_, err = f.svc.CreateRequisition(ctx, sales, off)
	be := requireKind(t, err, shared.KindCalculationMismatch)
	assert.Equal(t, "12000.00", be.Fields["expected_total"])

	// The failed attempt must not consume an order number.
	next, err := f.svc.CreateRequisition(ctx, sales, f.requisitionRequest())
	require.NoError(t, err)
	assert.Equal(t, "ORD000002", next.OrderNumber)
}

func TestCreateRequisitionRejectsStalePrice(t *testing.T) {
	f := newFixture(t)
	req := f.requisitionRequest()
	req.PricePerUnit = decp("11.00")

	_, err := f.svc.CreateRequisition(context.Background(), sales, req)
	be := requireKind(t, err, shared.KindPriceChanged)
	assert.Equal(t, "12.50", be.Fields["current_price"])
}

func TestCreateRequisitionValidation(t *testing.T) {
	f := newFixture(t)
	req := f.requisitionRequest()
	req.CustomerPhone = "   "
	req.CustomerLocation = ""

	_, err := f.svc.CreateRequisition(context.Background(), sales, req)
	be := requireKind(t, err, shared.KindValidation)
	assert.Contains(t, be.Fields, "customer_phone")
	assert.Contains(t, be.Fields, "customer_location")
}

func TestCreateRequisitionUnknownBrickType(t *testing.T) {
	f := newFixture(t)
	retired := f.store.PutBrickType(requisition.BrickType{Name: "Grey", CurrentPrice: dec("9"), Active: false})
	req := f.requisitionRequest()
	req.BrickTypeID = retired.ID

	_, err := f.svc.CreateRequisition(context.Background(), sales, req)
	requireKind(t, err, shared.KindNotFound)
}

func TestRoleGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRequisition(ctx, logistics, f.requisitionRequest())
	be := requireKind(t, err, shared.KindUnauthorizedRole)
	assert.Equal(t, "Sales Executive", be.Fields["required_role"])

	r := f.submit(t)
	_, err = f.svc.CreateChallan(ctx, accounts, workflow.CreateChallanRequest{RequisitionID: r.ID, VehicleNumber: "X", Location: "Y"})
	requireKind(t, err, shared.KindUnauthorizedRole)

	_, err = f.svc.PaymentSummary(ctx, logistics)
	requireKind(t, err, shared.KindUnauthorizedRole)

	_, err = f.svc.CompleteRequisition(ctx, accounts, r.ID)
	requireKind(t, err, shared.KindUnauthorizedRole)
}

func TestSalesExecutiveSeesOwnRequisitionsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.submit(t)
	_, err := f.svc.CreateRequisition(ctx, sales2, f.requisitionRequest())
	require.NoError(t, err)

	_, err = f.svc.GetRequisition(ctx, sales2, mine.ID)
	requireKind(t, err, shared.KindNotFound)

	page, err := f.svc.ListRequisitions(ctx, sales, requisition.ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)
	assert.Equal(t, shared.DefaultPerPage, page.Pagination.PerPage)

	all, err := f.svc.ListRequisitions(ctx, admin, requisition.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Pagination.Total)
	assert.Greater(t, all.Items[0].ID, all.Items[1].ID, "newest first")
}

func TestRequisitionsAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)

	requireKind(t, f.svc.UpdateRequisition(ctx, sales, r.ID), shared.KindRecordImmutable)
	requireKind(t, f.svc.DeleteRequisition(ctx, admin, r.ID), shared.KindRecordImmutable)
	requireKind(t, f.svc.DeleteRequisition(ctx, admin, 999), shared.KindNotFound)
}

func TestCreateChallanRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)

	_, err := f.svc.CreateChallan(ctx, logistics, workflow.CreateChallanRequest{RequisitionID: r.ID, VehicleNumber: "  ", Location: "Pune"})
	be := requireKind(t, err, shared.KindValidation)
	assert.Contains(t, be.Fields, "vehicle_number")

	f.dispatch(t, r)
	_, err = f.svc.CreateChallan(ctx, logistics, workflow.CreateChallanRequest{RequisitionID: r.ID, VehicleNumber: "MH", Location: "Pune"})
	requireKind(t, err, shared.KindBusinessRule)

	_, err = f.svc.CreateChallan(ctx, logistics, workflow.CreateChallanRequest{RequisitionID: 999, VehicleNumber: "MH", Location: "Pune"})
	requireKind(t, err, shared.KindNotFound)
}

func TestDeliveryStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	c := f.dispatch(t, r)

	_, err := f.svc.UpdateDeliveryStatus(ctx, logistics, c.ID, workflow.UpdateDeliveryStatusRequest{Status: challan.StatusDelivered})
	be := requireKind(t, err, shared.KindInvalidTransition)
	assert.Equal(t, "pending", be.Fields["current_status"])

	for _, next := range []challan.Status{challan.StatusAssigned, challan.StatusInTransit, challan.StatusDelivered} {
		updated, err := f.svc.UpdateDeliveryStatus(ctx, logistics, c.ID, workflow.UpdateDeliveryStatusRequest{Status: next})
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	got, err := f.svc.GetRequisition(ctx, admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, requisition.StatusDelivered, got.Status)

	vehicle := "MH14ZZ0001"
	_, err = f.svc.UpdateChallan(ctx, logistics, c.ID, workflow.UpdateChallanRequest{VehicleNumber: &vehicle})
	requireKind(t, err, shared.KindRecordImmutable)

	_, err = f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID})
	requireKind(t, err, shared.KindBusinessRule)
}

func TestUpdateChallanBeforeDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.dispatch(t, f.submit(t))

	vehicle, driver := " MH14ZZ0001 ", "Sunil"
	updated, err := f.svc.UpdateChallan(ctx, logistics, c.ID, workflow.UpdateChallanRequest{VehicleNumber: &vehicle, DriverName: &driver})
	require.NoError(t, err)
	assert.Equal(t, "MH14ZZ0001", updated.VehicleNumber)
	require.NotNil(t, updated.DriverName)
	assert.Equal(t, "Sunil", *updated.DriverName)

	blank := " "
	_, err = f.svc.UpdateChallan(ctx, logistics, c.ID, workflow.UpdateChallanRequest{Location: &blank})
	requireKind(t, err, shared.KindValidation)

	requireKind(t, f.svc.DeleteChallan(ctx, logistics, c.ID), shared.KindRecordImmutable)
}

func TestPrintChallanCountsPrints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.dispatch(t, f.submit(t))

	for i := 1; i <= 2; i++ {
		doc, err := f.svc.PrintChallan(ctx, logistics, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "CH-000001", doc.ChallanInfo.ChallanNumber)
		assert.Equal(t, "ORD000001", doc.ChallanInfo.OrderNumber)
		assert.Equal(t, i, doc.PrintInfo.PrintCount)
	}
	got, err := f.svc.GetChallan(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PrintCount)
}

func TestCreatePaymentRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.dispatch(t, f.submit(t))

	_, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID, AmountReceived: decp("12000.01")})
	be := requireKind(t, err, shared.KindPaymentExceedsOrder)
	assert.Equal(t, "12000.00", be.Fields["remaining_amount"])

	// Nothing from the failed attempt survives.
	still, err := f.svc.GetChallan(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, challan.StatusPending, still.Status)

	bad := payment.Method("barter")
	_, err = f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID, Method: &bad})
	requireKind(t, err, shared.KindValidation)

	p, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, p.Status)

	_, err = f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID})
	requireKind(t, err, shared.KindBusinessRule)
}

func TestUpdatePaymentStatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.dispatch(t, f.submit(t))
	p, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID})
	require.NoError(t, err)

	approved := payment.StatusApproved
	_, err = f.svc.UpdatePayment(ctx, accounts, p.ID, workflow.UpdatePaymentRequest{Status: &approved})
	requireKind(t, err, shared.KindInvalidTransition)

	overdue := payment.StatusOverdue
	p, err = f.svc.UpdatePayment(ctx, accounts, p.ID, workflow.UpdatePaymentRequest{Status: &overdue})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusOverdue, p.Status)

	p, err = f.svc.UpdatePayment(ctx, accounts, p.ID, workflow.UpdatePaymentRequest{AmountReceived: decp("12000")})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, p.Status)

	p, err = f.svc.UpdatePayment(ctx, accounts, p.ID, workflow.UpdatePaymentRequest{Status: &approved})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, p.Status)

	r, err := f.svc.GetRequisition(ctx, admin, c.RequisitionID)
	require.NoError(t, err)
	assert.Equal(t, requisition.StatusPaid, r.Status)
}

func TestDeleteUnapprovedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.dispatch(t, f.submit(t))
	p, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePayment(ctx, accounts, p.ID))
	_, err = f.svc.GetPayment(ctx, p.ID)
	requireKind(t, err, shared.KindNotFound)
}

func TestPaymentSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c1 := f.dispatch(t, f.submit(t))
	c2 := f.dispatch(t, f.submit(t))
	_, err := f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c1.ID, AmountReceived: decp("2000")})
	require.NoError(t, err)
	_, err = f.svc.CreatePayment(ctx, accounts, workflow.CreatePaymentRequest{ChallanID: c2.ID, AmountReceived: decp("12000")})
	require.NoError(t, err)

	summary, err := f.svc.PaymentSummary(ctx, accounts)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalPayments)
	assert.True(t, summary.TotalAmount.Equal(dec("24000")))
	assert.True(t, summary.TotalReceived.Equal(dec("14000")))
	assert.True(t, summary.TotalOutstanding.Equal(dec("10000")))
	require.Len(t, summary.ByStatus, 2)
	assert.Equal(t, payment.StatusPartial, summary.ByStatus[0].Status)
	assert.Equal(t, payment.StatusPaid, summary.ByStatus[1].Status)
}

func TestCheckBrickPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.svc.CheckBrickPrice(ctx, f.brick.ID, dec("12.50"))
	require.NoError(t, err)
	assert.False(t, check.PriceChanged)

	check, err = f.svc.CheckBrickPrice(ctx, f.brick.ID, dec("12.00"))
	require.NoError(t, err)
	assert.True(t, check.PriceChanged)
	require.NotNil(t, check.CurrentPrice)
	assert.True(t, check.CurrentPrice.Equal(dec("12.50")))

	check, err = f.svc.CheckBrickPrice(ctx, 999, dec("1"))
	require.NoError(t, err)
	assert.True(t, check.PriceChanged)
	assert.Nil(t, check.CurrentPrice)
}

func TestConcurrentRequisitionsGetGaplessNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 30
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			_, err := f.svc.CreateRequisition(ctx, sales, f.requisitionRequest())
			return err
		})
	}
	require.NoError(t, g.Wait())

	page, err := f.svc.ListRequisitions(ctx, admin, requisition.ListFilter{PerPage: 100})
	require.NoError(t, err)
	require.Len(t, page.Items, n)
	seen := map[string]bool{}
	for _, r := range page.Items {
		assert.False(t, seen[r.OrderNumber], "duplicate %s", r.OrderNumber)
		seen[r.OrderNumber] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("ORD%06d", i)])
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveOperation(operation string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	o.calls = append(o.calls, operation+":"+outcome)
}

func TestObserverSeesOutcomes(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	f.svc.SetObserver(obs)

	f.submit(t)
	_, err := f.svc.CreateRequisition(context.Background(), logistics, f.requisitionRequest())
	require.Error(t, err)

	assert.Equal(t, []string{"create_requisition:ok", "create_requisition:fail"}, obs.calls)
}
