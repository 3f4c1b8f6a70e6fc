package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Kind labels a notification payload so downstream consumers (email renderer,
// admin dashboard) can route it. Rendering and delivery are out of scope; the
// reconciliation core only requests sends.
type Kind string

const (
	KindCustomerOrderConfirmation Kind = "customer_order_confirmation"
	KindAdminNewOrder             Kind = "admin_new_order"
	KindAdminRefundFailed         Kind = "admin_refund_failed"
)

// Notifier dispatches notification payloads. Every send is best-effort and
// must never abort the transition that requested it.
type Notifier interface {
	SendCustomerOrderConfirmation(ctx context.Context, payload map[string]any) error
	SendAdminNewOrder(ctx context.Context, payload map[string]any) error
	SendAdminRefundFailedAlert(ctx context.Context, payload map[string]any) error
}

// messageWriter is the kafka.Writer surface the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notification payloads to a single topic, keyed by
// order id so per-order notifications stay ordered.
type KafkaNotifier struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaNotifier builds a notifier writing to topic on the given brokers.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: writer, logger: logger}
}

func (n *KafkaNotifier) SendCustomerOrderConfirmation(ctx context.Context, payload map[string]any) error {
	return n.send(ctx, KindCustomerOrderConfirmation, payload)
}

func (n *KafkaNotifier) SendAdminNewOrder(ctx context.Context, payload map[string]any) error {
	return n.send(ctx, KindAdminNewOrder, payload)
}

func (n *KafkaNotifier) SendAdminRefundFailedAlert(ctx context.Context, payload map[string]any) error {
	return n.send(ctx, KindAdminRefundFailed, payload)
}

func (n *KafkaNotifier) send(ctx context.Context, kind Kind, payload map[string]any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	msg := kafka.Message{
		Key:   messageKey(payload),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
		},
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	n.logger.Debug("notification dispatched", slog.String("kind", string(kind)))
	return nil
}

func messageKey(payload map[string]any) []byte {
	if id, ok := payload["order_id"]; ok {
		return []byte(fmt.Sprint(id))
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
