package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultTopic is used when no topic is configured
const DefaultTopic = "agrolink.order-notifications"

// Message header names
const (
	HeaderKind    = "notification-kind"
	HeaderOrderID = "order-id"
)

// messageWriter is the subset of *kafka.Writer the dispatcher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes notifications as JSON messages keyed by order ID,
// so all notifications of one order land on the same partition in order
type KafkaDispatcher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewKafkaWriter creates a writer for the notification topic
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaDispatcher creates a dispatcher over the given writer
func NewKafkaDispatcher(writer messageWriter, topic string, writeTimeout time.Duration, logger *zap.Logger) *KafkaDispatcher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaDispatcher{
		writer:       writer,
		topic:        topic,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Dispatch writes the notification to the topic
func (d *KafkaDispatcher) Dispatch(ctx context.Context, n ordering.Notification) error {
	msg, err := encodeMessage(n)
	if err != nil {
		return err
	}

	if d.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.writeTimeout)
		defer cancel()
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s notification for order %s: %w", n.Kind, n.OrderID, err)
	}

	d.logger.Debug("notification published",
		zap.String("topic", d.topic),
		zap.String("kind", n.Kind),
		zap.String("order_id", n.OrderID.String()),
		zap.Int("recipients", len(n.Recipients)),
	)
	return nil
}

// Close flushes pending writes and closes the writer
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

func encodeMessage(n ordering.Notification) (kafka.Message, error) {
	value, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode notification: %w", err)
	}
	ts := n.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Key:   []byte(n.OrderID.String()),
		Value: value,
		Time:  ts.UTC(),
		Headers: []kafka.Header{
			{Key: HeaderKind, Value: []byte(n.Kind)},
			{Key: HeaderOrderID, Value: []byte(n.OrderID.String())},
		},
	}, nil
}

var _ ordering.NotificationDispatcher = (*KafkaDispatcher)(nil)
