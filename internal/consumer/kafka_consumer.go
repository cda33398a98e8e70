package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/producer"
	"storefront/internal/sender"
	"storefront/internal/service"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Mailer interface {
	SendEmail(n sender.Notification) error
}

// KafkaOrderConsumer turns order events into customer e-mails.
type KafkaOrderConsumer struct {
	reader *kafka.Reader
	mailer Mailer
	log    *zap.Logger
}

func NewKafkaOrderConsumer(brokers []string, groupID, topic string, mailer Mailer, log *zap.Logger) *KafkaOrderConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return &KafkaOrderConsumer{reader: r, mailer: mailer, log: log}
}

func (c *KafkaOrderConsumer) Run(ctx context.Context) error {
	c.log.Info("kafka consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			continue
		}
		c.handle(m)
	}
}

func (c *KafkaOrderConsumer) handle(m kafka.Message) {
	eventType := headerValue(m.Headers, producer.HeaderEventType)
	n, err := BuildNotification(eventType, m.Value)
	if err != nil {
		c.log.Error("decode order event", zap.String("event", eventType), zap.ByteString("value", m.Value), zap.Error(err))
		return
	}
	if n == nil {
		c.log.Debug("event skipped", zap.String("event", eventType), zap.ByteString("key", m.Key))
		return
	}
	if err := c.mailer.SendEmail(*n); err != nil {
		c.log.Error("send email failed", zap.String("to", n.To), zap.String("template", n.Template), zap.Error(err))
		return
	}
	c.log.Info("email sent", zap.String("to", n.To), zap.String("template", n.Template))
}

// BuildNotification maps an order event to an e-mail. A nil notification means the event
// has nobody to notify, e.g. an order placed without an e-mail address.
func BuildNotification(eventType string, value []byte) (*sender.Notification, error) {
	switch eventType {
	case service.EventOrderPlaced:
		var e service.OrderPlacedEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, err
		}
		if e.CustomerEmail == "" {
			return nil, nil
		}
		return &sender.Notification{
			To:       e.CustomerEmail,
			Subject:  "We received your order",
			Template: "order_placed",
			Data: map[string]any{
				"CustomerName":  e.CustomerName,
				"OrderID":       e.OrderID.String(),
				"Items":         e.Items,
				"Subtotal":      e.Subtotal.StringFixed(2),
				"Shipping":      e.Shipping.StringFixed(2),
				"Discount":      e.Discount.StringFixed(2),
				"Total":         e.Total.StringFixed(2),
				"PaymentMethod": e.PaymentMethod,
			},
		}, nil

	case service.EventOrderStatusChanged:
		var e service.OrderStatusChangedEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, err
		}
		if e.CustomerEmail == "" {
			return nil, nil
		}
		return &sender.Notification{
			To:       e.CustomerEmail,
			Subject:  fmt.Sprintf("Your order is now %s", e.To),
			Template: "order_status_changed",
			Data: map[string]any{
				"CustomerName": e.CustomerName,
				"OrderID":      e.OrderID.String(),
				"From":         e.From,
				"To":           e.To,
				"Comment":      e.Comment,
			},
		}, nil

	case service.EventOrderDispatched:
		var e service.OrderDispatchedEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, err
		}
		if e.CustomerEmail == "" {
			return nil, nil
		}
		return &sender.Notification{
			To:       e.CustomerEmail,
			Subject:  "Your order is on its way",
			Template: "order_dispatched",
			Data: map[string]any{
				"CustomerName": e.CustomerName,
				"OrderID":      e.OrderID.String(),
				"TrackingCode": e.TrackingCode,
			},
		}, nil
	}
	return nil, nil
}

func headerValue(hs []kafka.Header, key string) string {
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *KafkaOrderConsumer) Close() error { return c.reader.Close() }
