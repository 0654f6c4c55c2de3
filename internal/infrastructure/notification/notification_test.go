package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingWriter struct {
	mu          sync.Mutex
	messages    []kafka.Message
	err         error
	hadDeadline bool
	closed      bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, w.hadDeadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testNotification() ordering.Notification {
	return ordering.Notification{
		ID:         uuid.New(),
		Kind:       ordering.NotificationNegotiationClosed,
		OrderID:    uuid.New(),
		Recipients: []uuid.UUID{uuid.New(), uuid.New()},
		Subject:    "Negotiation closed",
		Body:       "The buyer accepted the order",
		OccurredAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Attributes: map[string]string{"net_value": "150.00"},
	}
}

func TestKafkaDispatcher_Dispatch(t *testing.T) {
	writer := &recordingWriter{}
	d := NewKafkaDispatcher(writer, "", 5*time.Second, zap.NewNop())
	n := testNotification()

	require.NoError(t, d.Dispatch(context.Background(), n))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, n.OrderID.String(), string(msg.Key))
	assert.Equal(t, n.OccurredAt, msg.Time)
	assert.True(t, writer.hadDeadline)
	assert.Equal(t, DefaultTopic, d.topic)
	assert.Contains(t, msg.Headers, kafka.Header{Key: HeaderKind, Value: []byte(ordering.NotificationNegotiationClosed)})

	var decoded ordering.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.Recipients, decoded.Recipients)
	assert.Equal(t, "150.00", decoded.Attributes["net_value"])
}

func TestKafkaDispatcher_WriteFailure(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	d := NewKafkaDispatcher(writer, "orders", 0, nil)

	err := d.Dispatch(context.Background(), testNotification())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.False(t, writer.hadDeadline)
}

func TestKafkaDispatcher_Close(t *testing.T) {
	writer := &recordingWriter{}
	d := NewKafkaDispatcher(writer, "orders", 0, nil)

	require.NoError(t, d.Close())
	assert.True(t, writer.closed)
}

func TestLogDispatcher_Dispatch(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewLogDispatcher(zap.New(core))
	n := testNotification()

	require.NoError(t, d.Dispatch(context.Background(), n))

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, ordering.NotificationNegotiationClosed, fields["kind"])
	assert.Equal(t, n.OrderID.String(), fields["order_id"])
}

func TestNewDispatcher(t *testing.T) {
	assert.IsType(t, &LogDispatcher{}, NewDispatcher(config.NotificationConfig{}, nil))

	d := NewDispatcher(config.NotificationConfig{Brokers: []string{"localhost:9092"}, Topic: "orders"}, zap.NewNop())
	kd, ok := d.(*KafkaDispatcher)
	require.True(t, ok)
	assert.Equal(t, "orders", kd.topic)
	assert.NoError(t, kd.Close())
}
