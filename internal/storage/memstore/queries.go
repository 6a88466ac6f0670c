package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/reports"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

// ============================================================================
// STATE LOOKUPS
// ============================================================================

func (s *state) activeBrickType(id int64) (requisition.BrickType, error) {
	b, ok := s.brickTypes[id]
	if !ok || !b.Active {
		return requisition.BrickType{}, shared.ErrNotFound
	}
	return b, nil
}

func (s *state) requisition(id int64) (requisition.Requisition, error) {
	r, ok := s.requisitions[id]
	if !ok {
		return requisition.Requisition{}, shared.ErrNotFound
	}
	return r, nil
}

func (s *state) challan(id int64) (challan.Challan, error) {
	c, ok := s.challans[id]
	if !ok {
		return challan.Challan{}, shared.ErrNotFound
	}
	return c, nil
}

func (s *state) payment(id int64) (payment.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return payment.Payment{}, shared.ErrNotFound
	}
	return p, nil
}

func (s *state) challanFor(requisitionID int64) (challan.Challan, bool) {
	for _, c := range s.challans {
		if c.RequisitionID == requisitionID {
			return c, true
		}
	}
	return challan.Challan{}, false
}

func (s *state) paymentFor(challanID int64) (payment.Payment, bool) {
	for _, p := range s.payments {
		if p.ChallanID == challanID {
			return p, true
		}
	}
	return payment.Payment{}, false
}

func (s *state) record(r requisition.Requisition) reports.OrderRecord {
	rec := reports.OrderRecord{Requisition: r}
	if c, ok := s.challanFor(r.ID); ok {
		rec.Challan = &c
		if p, ok := s.paymentFor(c.ID); ok {
			rec.Payment = &p
		}
	}
	return rec
}

func newestFirst[T any](items []T, id func(T) int64) {
	slices.SortFunc(items, func(a, b T) int { return cmp.Compare(id(b), id(a)) })
}

func oldestFirst[T any](items []T, id func(T) int64) {
	slices.SortFunc(items, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
}

func requisitionID(r requisition.Requisition) int64 { return r.ID }
func challanID(c challan.Challan) int64             { return c.ID }
func paymentID(p payment.Payment) int64             { return p.ID }

// ============================================================================
// WORKFLOW READS
// ============================================================================

func (s *Store) ActiveBrickType(_ context.Context, id int64) (requisition.BrickType, error) {
	st, unlock := s.read()
	defer unlock()
	return st.activeBrickType(id)
}

func (s *Store) GetRequisition(_ context.Context, id int64) (requisition.Requisition, error) {
	st, unlock := s.read()
	defer unlock()
	return st.requisition(id)
}

func (s *Store) ListRequisitions(_ context.Context, filter requisition.ListFilter) ([]requisition.Requisition, int, error) {
	st, unlock := s.read()
	defer unlock()

	var items []requisition.Requisition
	for _, r := range st.requisitions {
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Date != nil && !sameDay(r.Date, *filter.Date) {
			continue
		}
		items = append(items, r)
	}
	newestFirst(items, requisitionID)
	return paginate(items, filter.Page, filter.PerPage), len(items), nil
}

func (s *Store) PendingRequisitions(_ context.Context) ([]requisition.Requisition, error) {
	st, unlock := s.read()
	defer unlock()

	items := []requisition.Requisition{}
	for _, r := range st.requisitions {
		if r.Status != requisition.StatusSubmitted {
			continue
		}
		if _, ok := st.challanFor(r.ID); ok {
			continue
		}
		items = append(items, r)
	}
	oldestFirst(items, requisitionID)
	return items, nil
}

func (s *Store) GetChallan(_ context.Context, id int64) (challan.Challan, error) {
	st, unlock := s.read()
	defer unlock()
	return st.challan(id)
}

func (s *Store) ListChallans(_ context.Context, filter challan.ListFilter) ([]challan.Challan, int, error) {
	st, unlock := s.read()
	defer unlock()

	var items []challan.Challan
	for _, c := range st.challans {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Date != nil && !sameDay(c.Date, *filter.Date) {
			continue
		}
		items = append(items, c)
	}
	newestFirst(items, challanID)
	return paginate(items, filter.Page, filter.PerPage), len(items), nil
}

func (s *Store) PendingChallansForPayment(_ context.Context) ([]challan.Challan, error) {
	st, unlock := s.read()
	defer unlock()

	items := []challan.Challan{}
	for _, c := range st.challans {
		if c.Status != challan.StatusPending {
			continue
		}
		if _, ok := st.paymentFor(c.ID); ok {
			continue
		}
		items = append(items, c)
	}
	oldestFirst(items, challanID)
	return items, nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (payment.Payment, error) {
	st, unlock := s.read()
	defer unlock()
	return st.payment(id)
}

func (s *Store) ListPayments(_ context.Context, filter payment.ListFilter) ([]payment.Payment, int, error) {
	st, unlock := s.read()
	defer unlock()

	var items []payment.Payment
	for _, p := range st.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		items = append(items, p)
	}
	newestFirst(items, paymentID)
	return paginate(items, filter.Page, filter.PerPage), len(items), nil
}

func (s *Store) PaymentTotalsByStatus(_ context.Context) ([]payment.StatusTotals, error) {
	st, unlock := s.read()
	defer unlock()

	var all []payment.Payment
	for _, p := range st.payments {
		all = append(all, p)
	}
	return totalsByStatus(all), nil
}

func (s *Store) AuditTrail(_ context.Context, entity, entityID string) ([]shared.AuditLog, error) {
	st, unlock := s.read()
	defer unlock()

	out := []shared.AuditLog{}
	for _, l := range st.audit {
		if l.Entity == entity && l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

// totalsByStatus groups payments in status order, omitting absent statuses.
func totalsByStatus(items []payment.Payment) []payment.StatusTotals {
	grouped := map[payment.Status]*payment.StatusTotals{}
	for _, p := range items {
		t, ok := grouped[p.Status]
		if !ok {
			t = &payment.StatusTotals{Status: p.Status, Total: decimal.Zero, Received: decimal.Zero}
			grouped[p.Status] = t
		}
		t.Count++
		t.Total = t.Total.Add(p.TotalAmount)
		t.Received = t.Received.Add(p.AmountReceived)
	}
	out := []payment.StatusTotals{}
	for _, status := range payment.Statuses() {
		if t, ok := grouped[status]; ok {
			t.Outstanding = t.Total.Sub(t.Received)
			out = append(out, *t)
		}
	}
	return out
}

// ============================================================================
// REPORT READS
// ============================================================================

func (s *Store) DeliveredOrders(_ context.Context, from, to time.Time) ([]reports.DeliveredOrder, error) {
	st, unlock := s.read()
	defer unlock()

	out := []reports.DeliveredOrder{}
	for _, c := range st.challans {
		if c.Status != challan.StatusDelivered || c.DeliveryDate == nil || !withinDays(*c.DeliveryDate, from, to) {
			continue
		}
		r, ok := st.requisitions[c.RequisitionID]
		if !ok {
			continue
		}
		o := reports.DeliveredOrder{
			ChallanID:      c.ID,
			ChallanNumber:  c.ChallanNumber,
			OrderNumber:    r.OrderNumber,
			CustomerName:   r.CustomerName,
			BrickType:      r.BrickTypeName,
			Quantity:       r.Quantity,
			TotalAmount:    r.TotalAmount,
			AmountReceived: decimal.Zero,
			DeliveryDate:   dayOf(*c.DeliveryDate),
			SalesExecutive: r.UserName,
		}
		if p, ok := st.paymentFor(c.ID); ok {
			status := p.Status
			o.PaymentStatus = &status
			o.AmountReceived = p.AmountReceived
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b reports.DeliveredOrder) int {
		if c := a.DeliveryDate.Compare(b.DeliveryDate); c != 0 {
			return c
		}
		return strings.Compare(a.ChallanNumber, b.ChallanNumber)
	})
	return out, nil
}

func (s *Store) OrderHistory(_ context.Context, filter reports.HistoryFilter) ([]reports.OrderRecord, int, error) {
	st, unlock := s.read()
	defer unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var items []reports.OrderRecord
	for _, r := range st.requisitions {
		if filter.OrderStatus != "" && r.Status != filter.OrderStatus {
			continue
		}
		if filter.From != nil && dayOf(r.CreatedAt).Before(dayOf(*filter.From)) {
			continue
		}
		if filter.To != nil && dayOf(r.CreatedAt).After(dayOf(*filter.To)) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.OrderNumber), search) &&
			!strings.Contains(strings.ToLower(r.CustomerName), search) {
			continue
		}
		rec := st.record(r)
		if filter.PaymentStatus != "" && (rec.Payment == nil || rec.Payment.Status != filter.PaymentStatus) {
			continue
		}
		items = append(items, rec)
	}
	slices.SortFunc(items, func(a, b reports.OrderRecord) int {
		return cmp.Compare(b.Requisition.ID, a.Requisition.ID)
	})
	return paginate(items, filter.Page, filter.PerPage), len(items), nil
}

func (s *Store) OrderRecord(_ context.Context, requisitionID int64) (reports.OrderRecord, error) {
	st, unlock := s.read()
	defer unlock()

	r, err := st.requisition(requisitionID)
	if err != nil {
		return reports.OrderRecord{}, err
	}
	return st.record(r), nil
}

func (s *Store) OrderTotals(_ context.Context, from, to time.Time) (reports.OrderTotals, error) {
	st, unlock := s.read()
	defer unlock()

	totals := reports.OrderTotals{Value: decimal.Zero}
	for _, r := range st.requisitions {
		if withinDays(r.CreatedAt, from, to) {
			totals.Count++
			totals.Value = totals.Value.Add(r.TotalAmount)
		}
	}
	return totals, nil
}

func (s *Store) PaymentTotals(_ context.Context, from, to time.Time) ([]payment.StatusTotals, error) {
	st, unlock := s.read()
	defer unlock()

	var items []payment.Payment
	for _, p := range st.payments {
		c, ok := st.challans[p.ChallanID]
		if !ok {
			continue
		}
		r, ok := st.requisitions[c.RequisitionID]
		if !ok || !withinDays(r.CreatedAt, from, to) {
			continue
		}
		items = append(items, p)
	}
	return totalsByStatus(items), nil
}
