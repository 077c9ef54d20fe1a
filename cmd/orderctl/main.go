// Command orderctl publishes an order_created event, the notification the
// inventory service consumes after an order has reserved its stock.
package main

import (
	"context"
	"encoding/json"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"time"

	"inventoryservice/internal/broker"
	"inventoryservice/internal/config"
	"inventoryservice/internal/inventory"
	"inventoryservice/internal/platform/kafka"
	"inventoryservice/internal/platform/observability"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	item := flag.String("item", "", "item to order (required)")
	quantity := flag.Int64("quantity", 1, "quantity ordered")
	orderID := flag.String("order-id", "", "order id (random when empty)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall publish timeout")
	flag.Parse()

	if *item == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *orderID == "" {
		*orderID = uuid.NewString()
	}

	logger, err := zap.NewProduction()
	if err != nil {
		stdlog.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := publish(logger, *orderID, *item, *quantity, *timeout); err != nil {
		logger.Fatal("Failed to publish order event", zap.Error(err))
	}
}

func publish(logger *zap.Logger, orderID, item string, quantity int64, timeout time.Duration) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tp, shutdown, err := observability.SetupTracingSDK(ctx, cfg)
	if err != nil {
		logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	producer, err := kafka.NewProducer(cfg.BrokerAddr(), cfg.OrderCreatedTopic, tp)
	if err != nil {
		return err
	}
	defer producer.Close()

	payload, err := json.Marshal(inventory.OrderEvent{OrderID: orderID, Item: item, Quantity: inventory.Quantity(quantity)})
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer("orderctl").Start(ctx, "order_created.publish")
	defer span.End()

	msg := kafkago.Message{Key: []byte(orderID), Value: payload}

	// Same linear schedule as the consumer's connection manager.
	attempt := 0
	b := backoff.WithContext(
		backoff.WithMaxRetries(broker.NewLinearBackOff(cfg.BrokerRetryBase), uint64(cfg.BrokerMaxRetries-1)),
		ctx,
	)
	err = backoff.RetryNotify(func() error {
		attempt++
		return producer.WriteMessage(ctx, msg)
	}, b, func(err error, wait time.Duration) {
		logger.Warn("Broker not ready, retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return err
	}

	logger.Info("📤 Sent order_created event",
		zap.String("order_id", orderID),
		zap.String("item", item),
		zap.Int64("quantity", quantity),
		zap.String("topic", cfg.OrderCreatedTopic),
	)
	return nil
}
