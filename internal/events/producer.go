// Package events publishes order lifecycle events to Kafka. Publishing is
// best-effort: a broker outage must never fail a customer request, so
// callers log errors and move on.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderPaid          = "order.paid"
	TypeOrderFailed        = "order.failed"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload written to the order-events topic.
type OrderEvent struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	CustomerID    string    `json:"customer_id"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Producer writes order events to Kafka.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:  kafka.TCP(brokers...),
			Topic: topic,
			// Hash balancing keeps all events of one order in one partition.
			Balancer: &kafka.Hash{},
		},
	}
}

// PublishOrderEvent writes one event, keyed by order id so events for the
// same order stay ordered within a partition.
func (p *Producer) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := kafka.Message{
		Key:   messageKey(ev),
		Value: payload,
	}
	return p.writer.WriteMessages(ctx, msg)
}

// messageKey is the order id alone. The key must not vary by event type,
// otherwise one order's events would scatter across partitions.
func messageKey(ev OrderEvent) []byte {
	return []byte(ev.OrderID)
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
