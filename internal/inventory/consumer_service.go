package inventory

import (
	"context"
	"errors"
	"fmt"

	"inventoryservice/internal/config"
	"inventoryservice/internal/platform/kafka"
	"inventoryservice/internal/platform/observability"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Connector hands out the process's broker subscription, connecting on first use.
type Connector interface {
	Connect(ctx context.Context) (kafka.Subscription, error)
}

type ConsumerService interface {
	Start(ctx context.Context) error
}

// KafkaConsumerService handles order_created messages one at a time, in delivery order.
type KafkaConsumerService struct {
	connector      Connector
	messageHandler MessageHandler
	logger         observability.Logger
	ackMode        config.AckMode
}

func NewConsumerService(connector Connector, messageHandler MessageHandler, logger observability.Logger, ackMode config.AckMode) *KafkaConsumerService {
	if ackMode == "" {
		ackMode = config.AckOnReceipt
	}
	return &KafkaConsumerService{
		connector:      connector,
		messageHandler: messageHandler,
		logger:         logger,
		ackMode:        ackMode,
	}
}

// Start blocks until ctx is done (returning nil) or the broker fails (returning the error).
// A broker that cannot be reached at all surfaces as broker.ErrBrokerUnavailable.
//
// With config.AckOnReceipt a message is acknowledged as it is read, so an
// interruption while handling loses that message. With config.AckAfterHandle
// it is acknowledged after the handler succeeds; a handler failure stops the
// consumer without acknowledging, so the message is redelivered.
// Malformed messages are acknowledged in both modes so they cannot block the queue.
func (c *KafkaConsumerService) Start(ctx context.Context) error {
	subscription, err := c.connector.Connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Info("Context done before broker connection was established", zap.Error(err))
			return nil
		}
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("Kafka consumer started. Waiting for messages...", zap.String("ack_mode", string(c.ackMode)))

	for {
		msg, err := c.next(ctx, subscription)
		if err != nil {
			if isDone(err) {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				break
			}
			c.logger.Error("❌ Error reading from Kafka", zap.Error(err))
			return fmt.Errorf("read order event: %w", err)
		}

		if err := c.messageHandler.HandleOrderCreated(ctx, msg); err != nil && !errors.Is(err, ErrMalformedEvent) {
			c.logger.Error("❌ Order handler failed", zap.Error(err), zap.Int64("offset", msg.Offset))
			if c.ackMode == config.AckAfterHandle {
				// Left uncommitted; the group redelivers it from this offset.
				return fmt.Errorf("handle order event at offset %d: %w", msg.Offset, err)
			}
		}

		if c.ackMode == config.AckAfterHandle {
			if err := subscription.CommitMessages(ctx, msg); err != nil {
				if isDone(err) {
					c.logger.Info("Context done before commit", zap.Int64("offset", msg.Offset))
					break
				}
				c.logger.Error("❌ Failed to commit order event", zap.Error(err), zap.Int64("offset", msg.Offset))
				return fmt.Errorf("commit order event: %w", err)
			}
		}
	}

	c.logger.Info("Consumer service finished. Shutting down...")
	return nil
}

func (c *KafkaConsumerService) next(ctx context.Context, subscription kafka.Subscription) (kafkago.Message, error) {
	if c.ackMode == config.AckAfterHandle {
		return subscription.FetchMessage(ctx)
	}
	msg, err := subscription.ReadMessage(ctx)
	if err != nil {
		return kafkago.Message{}, err
	}
	return *msg, nil
}

func isDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
