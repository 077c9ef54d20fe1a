package inventory

import (
	"context"
	"fmt"
	"time"

	"inventoryservice/internal/platform/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Service defines the core business operations for inventory management.
type Service interface {
	Reserve(ctx context.Context, item string, quantity int64) (ReservationResult, error)
	Stock(ctx context.Context, item string) (int64, error)
}

// Options are deployment-fixed parameters of the reservation engine.
type Options struct {
	// DefaultStock is the count an item starts with the first time it is reserved.
	DefaultStock int64
	// StoreTimeout bounds every store call.
	StoreTimeout time.Duration
}

// DefaultService is the reservation engine. It holds no stock state of its own:
// all concurrency control is delegated to the store's atomic Reserve.
type DefaultService struct {
	store   Store
	logger  observability.Logger
	tracer  observability.Tracer
	metrics *Metrics
	opts    Options
}

// NewService creates a new inventory service instance with explicit dependencies
func NewService(store Store, logger observability.Logger, tracer observability.Tracer, metrics *Metrics, opts Options) *DefaultService {
	if opts.DefaultStock < 0 {
		opts.DefaultStock = 0
	}
	return &DefaultService{
		store:   store,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
		opts:    opts,
	}
}

func (s *DefaultService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

// Reserve takes quantity units of item. Insufficient stock is a normal result
// with Success false; only store failures are errors.
func (s *DefaultService) Reserve(ctx context.Context, item string, quantity int64) (ReservationResult, error) {
	if item == "" {
		return ReservationResult{}, fmt.Errorf("%w: item is required", ErrInvalidReservation)
	}
	if quantity <= 0 {
		return ReservationResult{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidReservation, quantity)
	}

	ctx, span := s.tracer.Start(ctx, "inventory.reserve")
	defer span.End()

	span.SetAttributes(
		attribute.String("inventory.item", item),
		attribute.Int64("inventory.requested_quantity", quantity),
		attribute.String("inventory.operation", "reserve"),
	)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.store.Reserve(ctx, item, quantity, s.opts.DefaultStock)
	if err != nil {
		s.metrics.Reservations.WithLabelValues(resultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock store failed")
		s.logger.Error("Reservation failed",
			zap.String("operation", "reserve"),
			zap.String("item", item),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)
		return ReservationResult{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	span.SetAttributes(
		attribute.Bool("inventory.reserved", result.Success),
		attribute.Int64("inventory.remaining", result.Remaining),
	)

	if !result.Success {
		s.metrics.Reservations.WithLabelValues(resultInsufficient).Inc()
		s.logger.Info("Insufficient stock",
			zap.String("item", item),
			zap.Int64("quantity", quantity),
			zap.Int64("remaining", result.Remaining),
		)
		return result, nil
	}

	s.metrics.Reservations.WithLabelValues(resultReserved).Inc()
	span.SetStatus(codes.Ok, "stock reserved")
	s.logger.Info("Stock reserved",
		zap.String("item", item),
		zap.Int64("quantity", quantity),
		zap.Int64("remaining", result.Remaining),
	)
	return result, nil
}

// Stock returns the current count of item, 0 if it was never reserved.
func (s *DefaultService) Stock(ctx context.Context, item string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.stock")
	defer span.End()
	span.SetAttributes(attribute.String("inventory.item", item))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stock, _, err := s.store.Stock(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock store failed")
		s.logger.Error("Stock lookup failed",
			zap.String("operation", "get"),
			zap.String("item", item),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return stock, nil
}
