package inventory

import (
	"context"

	"inventoryservice/internal/platform/observability"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// MessageHandler defines the interface for processing incoming messages.
type MessageHandler interface {
	HandleOrderCreated(ctx context.Context, msg kafkago.Message) error
}

// KafkaMessageHandler records order notifications. It never touches stock:
// reservations happen on the HTTP path only.
type KafkaMessageHandler struct {
	metrics *Metrics
	logger  observability.Logger
	tracer  observability.Tracer
}

// NewMessageHandler creates a new MessageHandler instance with explicit dependencies
func NewMessageHandler(metrics *Metrics, logger observability.Logger, tracer observability.Tracer) *KafkaMessageHandler {
	return &KafkaMessageHandler{
		metrics: metrics,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleOrderCreated counts one order_created message. A body that cannot be
// decoded is logged and counted as malformed, and the error wraps ErrMalformedEvent.
func (h *KafkaMessageHandler) HandleOrderCreated(ctx context.Context, msg kafkago.Message) error {
	msgCtx := h.extractTraceContext(ctx, msg.Headers)
	_, span := h.tracer.Start(msgCtx, "order_created.process")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.destination.name", msg.Topic),
		attribute.Int("messaging.kafka.partition", msg.Partition),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	)

	h.logger.Info("📨 Raw order message received",
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	event, err := DecodeOrderEvent(msg.Value)
	if err != nil {
		h.metrics.MalformedEvents.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed order event")
		h.logger.Error("❌ Dropping malformed order event",
			zap.Error(err),
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("raw_value", msg.Value),
		)
		return err
	}

	h.metrics.ProcessedOrders.Inc()

	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("inventory.item", event.Item),
		attribute.Int64("inventory.quantity", int64(event.Quantity)),
	)
	span.SetStatus(codes.Ok, "order notification processed")

	h.logger.Info("✅ Processed order notification",
		zap.String("order_id", event.OrderID),
		zap.String("item", event.Item),
		zap.Int64("quantity", int64(event.Quantity)),
		zap.Int("metadata_fields", len(event.Metadata)),
	)
	return nil
}

// extractTraceContext extracts OpenTelemetry trace context from Kafka message headers
func (h *KafkaMessageHandler) extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[string(header.Key)] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
