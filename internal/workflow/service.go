// Package workflow orchestrates the order-to-cash use-cases: requisitions, delivery
// challans and payments. Every mutating use-case runs as one transaction and
// reports rule violations as *shared.BusinessError.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/shared"
)

var tracer = otel.Tracer("brickflow/workflow")

// Observer receives the outcome of every use-case.
type Observer interface {
	ObserveOperation(operation string, err error)
}

// Service provides the order-to-cash business logic.
type Service struct {
	repo     Repository
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// NewService constructs a workflow service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// SetObserver sets the outcome observer, typically the metrics collector.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// SetClock overrides the time source used for dates and timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// start opens a span for operation and returns a finisher that records the outcome.
func (s *Service) start(ctx context.Context, operation string, actor shared.Actor) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "workflow."+operation, trace.WithAttributes(
		attribute.Int64("actor.id", actor.UserID),
		attribute.String("actor.role", string(actor.Role)),
	))
	return ctx, func(errp *error) {
		defer span.End()
		var err error
		if errp != nil {
			err = *errp
		}
		if s.observer != nil {
			s.observer.ObserveOperation(operation, err)
		}
		if err == nil {
			return
		}
		if be, ok := shared.AsBusinessError(err); ok {
			span.SetAttributes(attribute.String("business_error.kind", string(be.Kind)))
			s.logger.Debug("business rule violation",
				zap.String("operation", operation),
				zap.String("kind", string(be.Kind)),
				zap.String("message", be.Message),
				zap.Int64("actor_id", actor.UserID),
			)
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("workflow operation failed",
			zap.String("operation", operation),
			zap.Int64("actor_id", actor.UserID),
			zap.String("actor_role", string(actor.Role)),
			zap.Error(err),
		)
	}
}

func (s *Service) today() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// notFound maps shared.ErrNotFound to a typed NotFound error for entity.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewNotFound(entity, id)
	}
	return fmt.Errorf("load %s %d: %w", entity, id, err)
}

func audit(ctx context.Context, tx TxRepository, actor shared.Actor, action, entity string, id int64, meta map[string]any) error {
	err := tx.RecordAudit(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		return fmt.Errorf("record audit %s: %w", action, err)
	}
	return nil
}
