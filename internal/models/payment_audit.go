package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the outcome recorded for a webhook delivery
type PaymentEventType string

const (
	PaymentEventWebhookIgnored     PaymentEventType = "webhook_ignored"
	PaymentEventPaymentRecorded    PaymentEventType = "payment_recorded"
	PaymentEventDuplicateDelivery  PaymentEventType = "duplicate_delivery"
	PaymentEventPersistenceFailed  PaymentEventType = "persistence_failed"
	PaymentEventStoreNotConfigured PaymentEventType = "store_not_configured"
	PaymentEventTutorPaidUpdated   PaymentEventType = "tutor_paid_updated"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceStripeWebhook PaymentEventSource = "stripe_webhook"
	PaymentSourceAdmin         PaymentEventSource = "admin"
)

// PaymentAudit is an immutable audit log entry for a payment event
type PaymentAudit struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	EventType      PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource    PaymentEventSource `json:"event_source" db:"event_source"`
	GatewayEventID *string            `json:"gateway_event_id,omitempty" db:"gateway_event_id"`
	PaymentID      *string            `json:"payment_id,omitempty" db:"payment_id"`
	BookingID      *string            `json:"booking_id,omitempty" db:"booking_id"`
	Amount         *float64           `json:"amount,omitempty" db:"amount"`
	Currency       *string            `json:"currency,omitempty" db:"currency"`
	ErrorMessage   *string            `json:"error_message,omitempty" db:"error_message"`
	UserAgent      *string            `json:"user_agent,omitempty" db:"user_agent"`
	Actor          *string            `json:"actor,omitempty" db:"actor"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetGatewayEvent sets the gateway event id
func (pa *PaymentAudit) SetGatewayEvent(eventID string) *PaymentAudit {
	if eventID != "" {
		pa.GatewayEventID = &eventID
	}
	return pa
}

// SetPayment sets the payment and booking the entry refers to
func (pa *PaymentAudit) SetPayment(paymentID, bookingID string) *PaymentAudit {
	if paymentID != "" {
		pa.PaymentID = &paymentID
	}
	if bookingID != "" {
		pa.BookingID = &bookingID
	}
	return pa
}

// SetAmount sets the amount in major units
func (pa *PaymentAudit) SetAmount(amount float64, currency string) *PaymentAudit {
	pa.Amount = &amount
	pa.Currency = &currency
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err != nil {
		msg := err.Error()
		pa.ErrorMessage = &msg
	}
	return pa
}

// SetUserAgent stores a normalised description of the sender's user agent
func (pa *PaymentAudit) SetUserAgent(ua string) *PaymentAudit {
	if ua != "" {
		pa.UserAgent = &ua
	}
	return pa
}

// SetActor records who triggered an admin change
func (pa *PaymentAudit) SetActor(actor string) *PaymentAudit {
	if actor != "" {
		pa.Actor = &actor
	}
	return pa
}
