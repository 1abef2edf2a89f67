package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tutorconnect/payment-bridge/internal/models"
)

// RoutingKeyPaymentCompleted is the topic used for recorded payments
const RoutingKeyPaymentCompleted = "payment.completed"

// PaymentCompleted is the message body published after a payment is recorded
type PaymentCompleted struct {
	PaymentID  string    `json:"paymentId"`
	BookingID  string    `json:"bookingId,omitempty"`
	ParentID   string    `json:"parentId,omitempty"`
	TutorID    string    `json:"tutorId,omitempty"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewPaymentCompleted builds the message for a payment record
func NewPaymentCompleted(payment *models.PaymentRecord) PaymentCompleted {
	return PaymentCompleted{
		PaymentID:  payment.PaymentID,
		BookingID:  payment.BookingID,
		ParentID:   payment.ParentID,
		TutorID:    payment.TutorID,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		OccurredAt: payment.CompletedAt,
	}
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends JSON messages to a topic exchange
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// NewPublisher dials RabbitMQ and declares a durable topic exchange
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON publishes v as a persistent JSON message
func (p *Publisher) PublishJSON(ctx context.Context, key, messageID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

// PublishPaymentCompleted announces a recorded payment. The payment id is the
// message id so consumers can drop redelivered announcements.
func (p *Publisher) PublishPaymentCompleted(ctx context.Context, payment *models.PaymentRecord) error {
	if err := p.PublishJSON(ctx, RoutingKeyPaymentCompleted, payment.PaymentID, NewPaymentCompleted(payment)); err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKeyPaymentCompleted, err)
	}
	return nil
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
