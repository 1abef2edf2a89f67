package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/database"
	"github.com/tutorconnect/payment-bridge/internal/models"
)

// PaymentStore reads payments and updates their payout state
type PaymentStore interface {
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	SetTutorPaid(ctx context.Context, paymentID string, paid bool, at time.Time) error
}

// PaymentAdminService backs the tutor payout admin API
type PaymentAdminService struct {
	payments PaymentStore
	audit    AuditLogger
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPaymentAdminService creates a new payment admin service. audit may be nil.
func NewPaymentAdminService(payments PaymentStore, audit AuditLogger, logger *logrus.Logger) *PaymentAdminService {
	return &PaymentAdminService{
		payments: payments,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// GetPayment returns a stored payment record
func (s *PaymentAdminService) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// SetTutorPaid records whether the tutor has been paid out for a payment
func (s *PaymentAdminService) SetTutorPaid(ctx context.Context, paymentID string, paid bool, actor string) (*models.PaymentRecord, error) {
	at := s.now().UTC()
	if err := s.payments.SetTutorPaid(ctx, paymentID, paid, at); err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"tutor_paid": paid,
		"actor":      actor,
	}).Info("Tutor payout status updated")

	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		entry := models.NewPaymentAudit(models.PaymentEventTutorPaidUpdated, models.PaymentSourceAdmin).
			SetPayment(payment.PaymentID, payment.BookingID).
			SetActor(actor)
		if err := s.audit.Log(ctx, entry); err != nil {
			s.logger.WithError(err).Warn("Payment audit not written")
		}
	}

	return payment, nil
}
