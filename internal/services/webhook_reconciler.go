package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/models"
	"github.com/tutorconnect/payment-bridge/internal/utils"
	"github.com/tutorconnect/payment-bridge/pkg/gateway"
)

// Warnings returned to the gateway alongside a 2xx acknowledgment
const (
	WarningStoreNotConfigured = "payment store not configured"
	WarningPaymentNotSaved    = "payment received but not saved"
	WarningUnreadableSession  = "checkout session could not be read"
)

const defaultPaymentMethod = "card"

// PaymentWriter persists payment records
type PaymentWriter interface {
	SavePayment(ctx context.Context, payment *models.PaymentRecord) error
}

// BookingWriter applies payment state to bookings
type BookingWriter interface {
	MarkPaid(ctx context.Context, bookingID string, update models.BookingPaymentUpdate) error
}

// AuditLogger records payment audit entries
type AuditLogger interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// EventLedger remembers gateway events that were fully processed
type EventLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// PaymentEventPublisher announces recorded payments to other services
type PaymentEventPublisher interface {
	PublishPaymentCompleted(ctx context.Context, payment *models.PaymentRecord) error
}

// WebhookDelivery is one inbound webhook request
type WebhookDelivery struct {
	Payload   []byte
	Signature string
	UserAgent string
}

// WebhookOutcome describes how a verified delivery was handled
type WebhookOutcome struct {
	EventID   string
	EventType string
	Handled   bool
	Duplicate bool
	PaymentID string
	BookingID string
	Warning   string
}

// PaymentFact is the normalised content of a completed checkout session
type PaymentFact struct {
	EventID         string
	SessionID       string
	PaymentIntentID string
	PaymentID       string
	AmountMinor     int64
	Amount          decimal.Decimal
	Currency        string
	BookingID       string
	ParentID        string
	TutorID         string
	PaymentMethod   string
	CustomerEmail   string
	Customer        *models.CustomerDetails
	OccurredAt      time.Time
}

// ExtractPaymentFact reads the payment facts from a checkout.session.completed event.
// now is used only when the event carries no creation time.
func ExtractPaymentFact(event *gateway.Event, now time.Time) (*PaymentFact, error) {
	cs, err := gateway.DecodeCheckoutSession(event.Object)
	if err != nil {
		return nil, err
	}
	if cs.ID == "" {
		return nil, fmt.Errorf("checkout session has no id")
	}

	fact := &PaymentFact{
		EventID:     event.ID,
		SessionID:   cs.ID,
		AmountMinor: cs.AmountTotal,
		Amount:      gateway.FromMinorUnits(cs.AmountTotal),
		Currency:    strings.ToLower(string(cs.Currency)),
		BookingID:   cs.Metadata["bookingId"],
		ParentID:    cs.Metadata["parentId"],
		TutorID:     cs.Metadata["tutorId"],
		OccurredAt:  event.Created,
	}

	// Some payment methods complete without a payment intent
	if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
		fact.PaymentIntentID = cs.PaymentIntent.ID
		fact.PaymentID = cs.PaymentIntent.ID
	} else {
		fact.PaymentID = cs.ID
	}

	fact.PaymentMethod = defaultPaymentMethod
	if len(cs.PaymentMethodTypes) > 0 && cs.PaymentMethodTypes[0] != "" {
		fact.PaymentMethod = cs.PaymentMethodTypes[0]
	}

	fact.CustomerEmail = cs.CustomerEmail
	if cs.CustomerDetails != nil {
		fact.Customer = &models.CustomerDetails{
			Email: cs.CustomerDetails.Email,
			Name:  cs.CustomerDetails.Name,
			Phone: cs.CustomerDetails.Phone,
		}
		if fact.CustomerEmail == "" {
			fact.CustomerEmail = cs.CustomerDetails.Email
		}
	}

	if fact.OccurredAt.IsZero() || fact.OccurredAt.Unix() <= 0 {
		fact.OccurredAt = now.UTC()
	}

	return fact, nil
}

// PaymentRecord builds the payment document for this fact. All timestamps come
// from the event so a redelivery produces the same document.
func (f *PaymentFact) PaymentRecord() *models.PaymentRecord {
	var intentID *string
	if f.PaymentIntentID != "" {
		id := f.PaymentIntentID
		intentID = &id
	}

	return &models.PaymentRecord{
		PaymentID:        f.PaymentID,
		BookingID:        f.BookingID,
		ParentID:         f.ParentID,
		TutorID:          f.TutorID,
		Amount:           f.Amount.InexactFloat64(),
		Currency:         f.Currency,
		Status:           models.PaymentStatusCompleted,
		PaymentMethod:    f.PaymentMethod,
		GatewaySessionID: f.SessionID,
		GatewayIntentID:  intentID,
		TransactionID:    f.PaymentID,
		CreatedAt:        f.OccurredAt,
		CompletedAt:      f.OccurredAt,
		UpdatedAt:        f.OccurredAt,
		TutorPaid:        false,
		Metadata: models.PaymentMetadata{
			CustomerEmail:   f.CustomerEmail,
			CustomerDetails: f.Customer,
		},
	}
}

// BookingUpdate builds the booking payment fields for this fact
func (f *PaymentFact) BookingUpdate() models.BookingPaymentUpdate {
	return models.BookingPaymentUpdate{
		PaymentStatus: models.BookingPaymentStatusPaid,
		PaymentID:     f.PaymentID,
		PaymentDate:   f.OccurredAt,
		UpdatedAt:     f.OccurredAt,
	}
}

// WebhookReconciler verifies gateway webhooks and applies completed payments
type WebhookReconciler struct {
	verifier     gateway.EventVerifier
	payments     PaymentWriter
	bookings     BookingWriter
	audit        AuditLogger
	ledger       EventLedger
	publisher    PaymentEventPublisher
	storeTimeout time.Duration
	logger       *logrus.Logger
	now          func() time.Time
}

// NewWebhookReconciler creates a reconciler. payments and bookings may be nil when
// no store is configured; deliveries are then acknowledged with a warning.
func NewWebhookReconciler(
	verifier gateway.EventVerifier,
	payments PaymentWriter,
	bookings BookingWriter,
	storeTimeout time.Duration,
	logger *logrus.Logger,
) *WebhookReconciler {
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	return &WebhookReconciler{
		verifier:     verifier,
		payments:     payments,
		bookings:     bookings,
		storeTimeout: storeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// SetAuditLogger enables the payment audit trail
func (r *WebhookReconciler) SetAuditLogger(audit AuditLogger) {
	r.audit = audit
}

// SetEventLedger enables short-circuiting of already processed events
func (r *WebhookReconciler) SetEventLedger(ledger EventLedger) {
	r.ledger = ledger
}

// SetPublisher enables payment.completed notifications
func (r *WebhookReconciler) SetPublisher(publisher PaymentEventPublisher) {
	r.publisher = publisher
}

// HandleWebhook runs one delivery through verify, filter, extract and persist.
// The only error it returns is *SignatureVerificationError; every verified
// delivery yields an outcome to acknowledge, persistence problems included.
func (r *WebhookReconciler) HandleWebhook(ctx context.Context, delivery WebhookDelivery) (*WebhookOutcome, error) {
	event, err := r.verifier.VerifyEvent(delivery.Payload, delivery.Signature)
	if err != nil {
		r.logger.WithError(err).Warn("Webhook signature verification failed")
		return nil, &SignatureVerificationError{Err: err}
	}

	outcome := &WebhookOutcome{EventID: event.ID, EventType: event.Type}
	log := r.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	// Writes must finish even if the sender hangs up
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.storeTimeout)
	defer cancel()

	sender := utils.DescribeUserAgent(delivery.UserAgent)

	if event.Type != gateway.EventTypeCheckoutSessionCompleted {
		log.Debug("Ignoring webhook event type")
		r.record(persistCtx, models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceStripeWebhook).
			SetGatewayEvent(event.ID).
			SetUserAgent(sender))
		return outcome, nil
	}
	outcome.Handled = true

	fact, err := ExtractPaymentFact(event, r.now())
	if err != nil {
		log.WithError(err).Error("Failed to read completed checkout session")
		outcome.Warning = WarningUnreadableSession
		r.record(persistCtx, models.NewPaymentAudit(models.PaymentEventPersistenceFailed, models.PaymentSourceStripeWebhook).
			SetGatewayEvent(event.ID).
			SetError(err).
			SetUserAgent(sender))
		return outcome, nil
	}

	outcome.PaymentID = fact.PaymentID
	outcome.BookingID = fact.BookingID
	log = log.WithFields(logrus.Fields{
		"session_id": fact.SessionID,
		"payment_id": fact.PaymentID,
		"booking_id": fact.BookingID,
	})
	log.Info("Payment successful for checkout session")

	audit := func(eventType models.PaymentEventType) *models.PaymentAudit {
		return models.NewPaymentAudit(eventType, models.PaymentSourceStripeWebhook).
			SetGatewayEvent(event.ID).
			SetPayment(fact.PaymentID, fact.BookingID).
			SetAmount(fact.Amount.InexactFloat64(), fact.Currency).
			SetUserAgent(sender)
	}

	if r.payments == nil {
		log.Error("Payment store not available; payment record not saved")
		outcome.Warning = WarningStoreNotConfigured
		r.record(persistCtx, audit(models.PaymentEventStoreNotConfigured))
		return outcome, nil
	}

	if r.alreadyProcessed(persistCtx, event.ID, log) {
		log.Info("Webhook event already processed")
		outcome.Duplicate = true
		r.record(persistCtx, audit(models.PaymentEventDuplicateDelivery))
		return outcome, nil
	}

	payment := fact.PaymentRecord()
	if err := r.persist(persistCtx, fact, payment); err != nil {
		// Acknowledged anyway: a 2xx stops gateway redelivery storms, the log
		// and audit entry are the operator's follow-up signal
		log.WithError(err).Error("Failed to persist payment")
		outcome.Warning = WarningPaymentNotSaved
		r.record(persistCtx, audit(models.PaymentEventPersistenceFailed).SetError(err))
		return outcome, nil
	}

	if r.ledger != nil {
		if err := r.ledger.MarkProcessed(persistCtx, event.ID); err != nil {
			log.WithError(err).Warn("Failed to mark webhook event processed")
		}
	}

	if r.publisher != nil {
		if err := r.publisher.PublishPaymentCompleted(persistCtx, payment); err != nil {
			log.WithError(err).Warn("Failed to publish payment.completed")
		}
	}

	r.record(persistCtx, audit(models.PaymentEventPaymentRecorded))
	log.WithFields(logrus.Fields{
		"amount":   payment.Amount,
		"currency": payment.Currency,
	}).Info("Payment recorded")

	return outcome, nil
}

func (r *WebhookReconciler) persist(ctx context.Context, fact *PaymentFact, payment *models.PaymentRecord) error {
	if err := r.payments.SavePayment(ctx, payment); err != nil {
		return &PersistenceError{Collection: models.CollectionPayments, ID: fact.PaymentID, Err: err}
	}

	if fact.BookingID == "" {
		r.logger.WithField("payment_id", fact.PaymentID).Info("No booking id in session metadata; booking update skipped")
		return nil
	}

	if r.bookings == nil {
		return &PersistenceError{Collection: models.CollectionBookings, ID: fact.BookingID, Err: fmt.Errorf("booking store not configured")}
	}

	if err := r.bookings.MarkPaid(ctx, fact.BookingID, fact.BookingUpdate()); err != nil {
		return &PersistenceError{Collection: models.CollectionBookings, ID: fact.BookingID, Err: err}
	}
	return nil
}

func (r *WebhookReconciler) alreadyProcessed(ctx context.Context, eventID string, log *logrus.Entry) bool {
	if r.ledger == nil || eventID == "" {
		return false
	}
	seen, err := r.ledger.Seen(ctx, eventID)
	if err != nil {
		log.WithError(err).Warn("Event ledger unavailable; processing delivery")
		return false
	}
	return seen
}

func (r *WebhookReconciler) record(ctx context.Context, audit *models.PaymentAudit) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Log(ctx, audit); err != nil {
		r.logger.WithError(err).WithField("event_type", audit.EventType).Warn("Payment audit not written")
	}
}
