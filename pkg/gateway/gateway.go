package gateway

import (
	"context"
	"encoding/json"
	"time"
)

// EventTypeCheckoutSessionCompleted is the only event type that carries a completed payment
const EventTypeCheckoutSessionCompleted = "checkout.session.completed"

// SessionCreator creates hosted checkout sessions
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error)
}

// EventVerifier authenticates webhook deliveries
type EventVerifier interface {
	// VerifyEvent checks the signature over the exact payload bytes and decodes the event
	VerifyEvent(payload []byte, signature string) (*Event, error)
}

// CheckoutSessionParams describes a single-item checkout session
type CheckoutSessionParams struct {
	AmountMinor     int64
	Currency        string
	ProductName     string
	Description     string
	SuccessURL      string
	CancelURL       string
	ClientReference string
	Metadata        map[string]string
}

// CheckoutSession is the gateway-issued session
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook event
type Event struct {
	ID      string
	Type    string
	Created time.Time
	// Object is the raw JSON of the event's data object
	Object json.RawMessage
}
