package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/shared"
)

// DefaultHistoryPerPage is the order history page size.
const DefaultHistoryPerPage = 20

var tracer = otel.Tracer("brickflow/reports")

// Service builds reports from the read models.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs a report service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// SetClock overrides the time source used for dates and timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Daily reports the challans delivered on date. Accounts only. Received amounts
// are summed over those challans' payments, not by payment date.
func (s *Service) Daily(ctx context.Context, actor shared.Actor, date time.Time) (*DailyReport, error) {
	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "reports.daily", trace.WithAttributes(
		attribute.String("report.date", date.Format(time.DateOnly)),
	))
	defer span.End()

	day := truncateDay(date)
	orders, err := s.repo.DeliveredOrders(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("load delivered orders: %w", err)
	}
	return &DailyReport{
		Date:      day,
		Summary:   summarize(orders),
		Breakdown: breakdown(orders),
		Orders:    orders,
	}, nil
}

// Range reports the challans delivered between from and to inclusive. Accounts only.
func (s *Service) Range(ctx context.Context, actor shared.Actor, from, to time.Time) (*RangeReport, error) {
	if err := actor.RequireRole(shared.RoleAccounts); err != nil {
		return nil, err
	}
	from, to = truncateDay(from), truncateDay(to)
	if to.Before(from) {
		return nil, shared.NewValidation(map[string][]string{
			"to_date": {"The to date must be a date after or equal to from date."},
		})
	}
	ctx, span := tracer.Start(ctx, "reports.range", trace.WithAttributes(
		attribute.String("report.from", from.Format(time.DateOnly)),
		attribute.String("report.to", to.Format(time.DateOnly)),
	))
	defer span.End()

	orders, err := s.repo.DeliveredOrders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load delivered orders: %w", err)
	}
	return &RangeReport{
		From:      from,
		To:        to,
		Summary:   summarize(orders),
		Breakdown: breakdown(orders),
		Daily:     daily(orders),
		Orders:    orders,
	}, nil
}

// OrderHistory lists requisitions with their challan and payment, newest first.
// Admin only.
func (s *Service) OrderHistory(ctx context.Context, actor shared.Actor, filter HistoryFilter) (*HistoryPage, error) {
	if err := actor.RequireRole(shared.RoleAdmin); err != nil {
		return nil, err
	}
	fields := map[string][]string{}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.IsValid() {
		fields["payment_status"] = []string{"The selected payment status is invalid."}
	}
	if filter.OrderStatus != "" && !filter.OrderStatus.IsValid() {
		fields["order_status"] = []string{"The selected order status is invalid."}
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		fields["to_date"] = []string{"The to date must be a date after or equal to from date."}
	}
	if len(fields) > 0 {
		return nil, shared.NewValidation(fields)
	}
	if filter.PerPage <= 0 {
		filter.PerPage = DefaultHistoryPerPage
	}
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)

	items, total, err := s.repo.OrderHistory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	return &HistoryPage{Items: items, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// OrderDetail returns one requisition with its challan and payment. Admin only.
func (s *Service) OrderDetail(ctx context.Context, actor shared.Actor, id int64) (*OrderRecord, error) {
	if err := actor.RequireRole(shared.RoleAdmin); err != nil {
		return nil, err
	}
	rec, err := s.repo.OrderRecord(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFound("requisition", id)
		}
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return &rec, nil
}

// OrderStatistics summarises orders created between from and to. Nil bounds
// default to the current month. Admin only.
func (s *Service) OrderStatistics(ctx context.Context, actor shared.Actor, from, to *time.Time) (*Statistics, error) {
	if err := actor.RequireRole(shared.RoleAdmin); err != nil {
		return nil, err
	}
	start, end := s.monthBounds()
	if from != nil {
		start = truncateDay(*from)
	}
	if to != nil {
		end = truncateDay(*to)
	}
	if end.Before(start) {
		return nil, shared.NewValidation(map[string][]string{
			"to_date": {"The to date must be a date after or equal to from date."},
		})
	}

	var (
		orders OrderTotals
		totals []payment.StatusTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.OrderTotals(gctx, start, end)
		if err != nil {
			return fmt.Errorf("order totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		totals, err = s.repo.PaymentTotals(gctx, start, end)
		if err != nil {
			return fmt.Errorf("payment totals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("order statistics failed", zap.Error(err))
		return nil, err
	}

	stats := &Statistics{
		From:              start,
		To:                end,
		TotalOrders:       orders.Count,
		TotalValue:        orders.Value,
		OutstandingAmount: decimal.Zero,
		TotalReceived:     decimal.Zero,
	}
	for _, t := range totals {
		switch t.Status {
		case payment.StatusPending:
			stats.PendingPayments = t.Count
		case payment.StatusPartial:
			stats.PartialPayments = t.Count
		case payment.StatusPaid:
			stats.PaidOrders = t.Count
		case payment.StatusApproved:
			stats.ApprovedOrders = t.Count
		}
		if t.Status == payment.StatusPending || t.Status == payment.StatusPartial {
			stats.OutstandingAmount = stats.OutstandingAmount.Add(t.Total.Sub(t.Received))
		}
		stats.TotalReceived = stats.TotalReceived.Add(t.Received)
	}
	return stats, nil
}

func (s *Service) monthBounds() (time.Time, time.Time) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, -1)
}

// ============================================================================
// AGGREGATION
// ============================================================================

func summarize(orders []DeliveredOrder) Summary {
	sum := Summary{
		TotalDeliveredOrders:   len(orders),
		TotalExpectedAmount:    decimal.Zero,
		TotalReceivedAmount:    decimal.Zero,
		TotalOutstandingAmount: decimal.Zero,
	}
	for _, o := range orders {
		sum.TotalExpectedAmount = sum.TotalExpectedAmount.Add(o.TotalAmount)
		sum.TotalReceivedAmount = sum.TotalReceivedAmount.Add(o.AmountReceived)
	}
	sum.TotalOutstandingAmount = sum.TotalExpectedAmount.Sub(sum.TotalReceivedAmount)
	return sum
}

// breakdown always carries every payment status, zero-filled.
func breakdown(orders []DeliveredOrder) map[payment.Status]StatusBreakdown {
	out := make(map[payment.Status]StatusBreakdown, len(payment.Statuses()))
	for _, st := range payment.Statuses() {
		out[st] = StatusBreakdown{
			ExpectedAmount:    decimal.Zero,
			ReceivedAmount:    decimal.Zero,
			OutstandingAmount: decimal.Zero,
		}
	}
	for _, o := range orders {
		b := out[o.Status()]
		b.Count++
		b.ExpectedAmount = b.ExpectedAmount.Add(o.TotalAmount)
		b.ReceivedAmount = b.ReceivedAmount.Add(o.AmountReceived)
		b.OutstandingAmount = b.OutstandingAmount.Add(o.Outstanding())
		out[o.Status()] = b
	}
	return out
}

func daily(orders []DeliveredOrder) []DayTotals {
	byDay := map[string]*DayTotals{}
	for _, o := range orders {
		day := truncateDay(o.DeliveryDate)
		key := day.Format(time.DateOnly)
		d, ok := byDay[key]
		if !ok {
			d = &DayTotals{
				Date:              day,
				ExpectedAmount:    decimal.Zero,
				ReceivedAmount:    decimal.Zero,
				OutstandingAmount: decimal.Zero,
			}
			byDay[key] = d
		}
		d.OrdersCount++
		d.ExpectedAmount = d.ExpectedAmount.Add(o.TotalAmount)
		d.ReceivedAmount = d.ReceivedAmount.Add(o.AmountReceived)
		d.OutstandingAmount = d.OutstandingAmount.Add(o.Outstanding())
	}
	out := make([]DayTotals, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
