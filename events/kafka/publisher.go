// Package kafka publishes billing events to a Kafka topic.
//
// The ledger is the source of truth; events are a downstream notification
// only. Consumers (reporting, notifications) tolerate loss and replays.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/warp/rent-ledger/billing"
)

const paymentTopic = "payment_recorded"

// PaymentRecordedEvent is the wire form of a committed payment.
type PaymentRecordedEvent struct {
	EventID    string `json:"event_id"`
	PaymentID  string `json:"payment_id"`
	AccountID  string `json:"account_id"`
	Amount     string `json:"amount"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	ForMonth   string `json:"for_month,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// Publisher implements billing.EventPublisher over a Kafka writer.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    paymentTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

var _ billing.EventPublisher = (*Publisher)(nil)

func (p *Publisher) PaymentRecorded(ctx context.Context, payment billing.Payment) error {
	event := PaymentRecordedEvent{
		EventID:    uuid.NewString(),
		PaymentID:  payment.ID,
		AccountID:  payment.TenantID,
		Amount:     payment.Amount.String(),
		Type:       string(payment.Type),
		Date:       payment.Date.String(),
		ForMonth:   payment.RentForMonth.String(),
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payment.TenantID),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
