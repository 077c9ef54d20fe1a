package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
)

type Producer interface {
	WriteMessage(ctx context.Context, msg kafkago.Message) error
	Close() error
}

type Consumer interface {
	ReadMessage(ctx context.Context) (*kafkago.Message, error)
	Close() error
}

// Subscription is a live consumer-group subscription to a single topic.
// ReadMessage commits on receipt; FetchMessage leaves the commit to CommitMessages.
type Subscription interface {
	Consumer
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}
