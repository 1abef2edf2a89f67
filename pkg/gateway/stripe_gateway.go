package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader carries the webhook signature
const SignatureHeader = "Stripe-Signature"

// ErrWebhookSecretMissing is returned when no signing secret is configured
var ErrWebhookSecretMissing = errors.New("webhook signing secret is not configured")

// StripeConfig holds the Stripe gateway settings
type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	WebhookTolerance  time.Duration
	Timeout           time.Duration
	MaxNetworkRetries int64
	// APIURL overrides the Stripe API base URL (tests, stripe-mock)
	APIURL string
}

// StripeGateway implements SessionCreator and EventVerifier with stripe-go
type StripeGateway struct {
	sessions      session.Client
	webhookSecret string
	tolerance     time.Duration
	logger        *logrus.Logger
}

// NewStripeGateway creates a Stripe gateway with its own backend, so the
// process-wide stripe.Key is never touched
func NewStripeGateway(cfg StripeConfig, logger *logrus.Logger) *StripeGateway {
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     logger,
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	return &StripeGateway{
		sessions:      session.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		tolerance:     cfg.WebhookTolerance,
		logger:        logger,
	}
}

// CreateCheckoutSession creates a one-item card checkout session in payment mode
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p *CheckoutSessionParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.ProductName),
						Description: stripe.String(p.Description),
					},
					UnitAmount: stripe.Int64(p.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.ClientReference),
		Metadata:          p.Metadata,
	}
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"session_id":   s.ID,
		"amount_minor": p.AmountMinor,
		"currency":     p.Currency,
	}).Info("Stripe checkout session created")

	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// VerifyEvent validates the Stripe-Signature header against the raw payload
func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}
	if signature == "" {
		return nil, fmt.Errorf("missing %s header", SignatureHeader)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	event := &Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Data != nil {
		event.Object = ev.Data.Raw
	}
	return event, nil
}

// ErrorMessage extracts the human readable message from a gateway error
func ErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

// SignPayload builds a Stripe-Signature header for payload, for local tooling and tests
func SignPayload(payload []byte, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Header
}

// DecodeCheckoutSession decodes a checkout session from an event's data object
func DecodeCheckoutSession(object json.RawMessage) (*stripe.CheckoutSession, error) {
	if len(object) == 0 {
		return nil, fmt.Errorf("event has no data object")
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(object, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &cs, nil
}
