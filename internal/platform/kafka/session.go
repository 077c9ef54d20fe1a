package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
)

// SessionDialer opens a subscription to Topic for consumer group GroupID.
// Each Dial is one full handshake: reach the broker, make sure the durable
// topic exists, then build the group reader.
type SessionDialer struct {
	Broker  string
	Topic   string
	GroupID string
	Timeout time.Duration
}

// session routes every call through the traced reader so fetches and commits get spans too.
type session struct {
	traced *otelkafka.Reader
}

func (s *session) ReadMessage(ctx context.Context) (*kafkago.Message, error) {
	return s.traced.ReadMessage(ctx)
}

func (s *session) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	var msg kafkago.Message
	if err := s.traced.FetchMessage(ctx, &msg); err != nil {
		return kafkago.Message{}, err
	}
	return msg, nil
}

func (s *session) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.traced.CommitMessages(ctx, msgs...)
}

func (s *session) Close() error {
	return s.traced.Close()
}

// Dial implements broker.Dialer.
func (d *SessionDialer) Dial(ctx context.Context) (Subscription, error) {
	dialer := &kafkago.Dialer{Timeout: d.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", d.Broker)
	if err != nil {
		return nil, fmt.Errorf("dial broker %s: %w", d.Broker, err)
	}
	defer conn.Close()

	if err := ensureTopic(ctx, dialer, conn, d.Topic); err != nil {
		return nil, err
	}

	base := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{d.Broker},
		Topic:   d.Topic,
		GroupID: d.GroupID,
		Dialer:  dialer,
	})
	sess, err := newSession(base)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("instrument reader: %w", err)
	}
	return sess, nil
}

func newSession(base *kafkago.Reader, opts ...otelkafka.Option) (*session, error) {
	traced, err := otelkafka.NewReader(base, opts...)
	if err != nil {
		return nil, err
	}
	return &session{traced: traced}, nil
}

// ensureTopic asks the cluster controller to create topic and accepts that it already exists.
func ensureTopic(ctx context.Context, dialer *kafkago.Dialer, conn *kafkago.Conn, topic string) error {
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("lookup controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("declare topic %s: %w", topic, err)
	}
	return nil
}
