package producer

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HeaderEventType carries the event name; the notifier dispatches on it.
const HeaderEventType = "event-type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventBus publishes order events to one topic keyed by order id, so the events of
// one order keep their order within a partition.
type KafkaEventBus struct {
	writer messageWriter
}

func NewKafkaEventBus(brokers []string, topic string) *KafkaEventBus {
	return &KafkaEventBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaEventBus) PublishOrderPlaced(ctx context.Context, e service.OrderPlacedEvent) error {
	return p.publish(ctx, service.EventOrderPlaced, e.OrderID, e)
}

func (p *KafkaEventBus) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return p.publish(ctx, service.EventOrderStatusChanged, e.OrderID, e)
}

func (p *KafkaEventBus) PublishOrderDispatched(ctx context.Context, e service.OrderDispatchedEvent) error {
	return p.publish(ctx, service.EventOrderDispatched, e.OrderID, e)
}

func (p *KafkaEventBus) publish(ctx context.Context, eventType string, orderID uuid.UUID, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(orderID.String()),
		Value:   value,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(eventType)}},
	})
}

func (p *KafkaEventBus) Close() error {
	return p.writer.Close()
}

// LogEventBus is used when kafka is disabled: events only reach the log.
type LogEventBus struct {
	log *zap.Logger
}

func NewLogEventBus(log *zap.Logger) *LogEventBus {
	return &LogEventBus{log: log}
}

func (b *LogEventBus) PublishOrderPlaced(_ context.Context, e service.OrderPlacedEvent) error {
	b.log.Debug(service.EventOrderPlaced, zap.String("order_id", e.OrderID.String()))
	return nil
}

func (b *LogEventBus) PublishOrderStatusChanged(_ context.Context, e service.OrderStatusChangedEvent) error {
	b.log.Debug(service.EventOrderStatusChanged,
		zap.String("order_id", e.OrderID.String()),
		zap.String("from", e.From),
		zap.String("to", e.To),
	)
	return nil
}

func (b *LogEventBus) PublishOrderDispatched(_ context.Context, e service.OrderDispatchedEvent) error {
	b.log.Debug(service.EventOrderDispatched,
		zap.String("order_id", e.OrderID.String()),
		zap.String("tracking_code", e.TrackingCode),
	)
	return nil
}
