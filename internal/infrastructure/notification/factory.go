package notification

import (
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Dispatcher is a NotificationDispatcher that holds resources
type Dispatcher interface {
	ordering.NotificationDispatcher
	Close() error
}

// NewDispatcher returns a Kafka dispatcher when brokers are configured, otherwise a log dispatcher
func NewDispatcher(cfg config.NotificationConfig, logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Brokers) == 0 {
		logger.Info("No notification brokers configured, notifications will be logged")
		return NewLogDispatcher(logger)
	}

	logger.Info("Publishing notifications to Kafka",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return NewKafkaDispatcher(NewKafkaWriter(cfg.Brokers, cfg.Topic), cfg.Topic, cfg.WriteTimeout, logger)
}
