package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/models"
	"github.com/tutorconnect/payment-bridge/pkg/gateway"
)

const testWebhookSecret = "whsec_test_reconciler"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestVerifier() *gateway.StripeGateway {
	return gateway.NewStripeGateway(gateway.StripeConfig{
		WebhookSecret:    testWebhookSecret,
		WebhookTolerance: 5 * time.Minute,
		Timeout:          time.Second,
	}, quietLogger())
}

func signedDelivery(t *testing.T, payload []byte) WebhookDelivery {
	t.Helper()
	return WebhookDelivery{
		Payload:   payload,
		Signature: gateway.SignPayload(payload, testWebhookSecret, time.Now()),
		UserAgent: "Stripe/1.0 (+https://stripe.com/docs/webhooks)",
	}
}

type fakeSessions struct {
	calls  int
	params *gateway.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) CreateCheckoutSession(_ context.Context, p *gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error) {
	f.calls++
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

type failingPayments struct{ err error }

func (f failingPayments) SavePayment(context.Context, *models.PaymentRecord) error { return f.err }

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.PaymentAudit
}

func (r *recordingAudit) Log(_ context.Context, audit *models.PaymentAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, audit)
	return nil
}

func (r *recordingAudit) types() []models.PaymentEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PaymentEventType, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.EventType)
	}
	return out
}

type memoryLedger struct {
	seen    map[string]bool
	seenErr error
}

func newMemoryLedger() *memoryLedger { return &memoryLedger{seen: map[string]bool{}} }

func (l *memoryLedger) Seen(_ context.Context, eventID string) (bool, error) {
	if l.seenErr != nil {
		return false, l.seenErr
	}
	return l.seen[eventID], nil
}

func (l *memoryLedger) MarkProcessed(_ context.Context, eventID string) error {
	l.seen[eventID] = true
	return nil
}

type recordingPublisher struct {
	published []*models.PaymentRecord
	err       error
}

func (p *recordingPublisher) PublishPaymentCompleted(_ context.Context, payment *models.PaymentRecord) error {
	p.published = append(p.published, payment)
	return p.err
}
