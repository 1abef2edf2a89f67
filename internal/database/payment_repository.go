package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorconnect/payment-bridge/internal/models"
)

// payoutFields are owned by the tutor payout process and survive webhook redelivery
var payoutFields = []string{
	models.FieldTutorPaid,
	models.FieldTutorPaidAt,
	models.FieldCreatedAt,
	models.FieldUpdatedAt,
}

// PaymentRepository stores payment records in the payments collection
type PaymentRepository struct {
	store DocumentStore
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(store DocumentStore) *PaymentRepository {
	return &PaymentRepository{store: store}
}

// SavePayment upserts a payment record keyed by its PaymentID. On redelivery the
// gateway facts are rewritten while the payout fields keep their stored values.
func (r *PaymentRepository) SavePayment(ctx context.Context, payment *models.PaymentRecord) error {
	if payment == nil || payment.PaymentID == "" {
		return fmt.Errorf("payment id is required")
	}

	err := r.store.Set(ctx, models.CollectionPayments, payment.PaymentID, payment,
		WithMerge(),
		WithPreserve(payoutFields...),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment %s: %w", payment.PaymentID, err)
	}
	return nil
}

// GetPayment retrieves a payment record by id
func (r *PaymentRepository) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	var payment models.PaymentRecord
	if err := r.store.Get(ctx, models.CollectionPayments, paymentID, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SetTutorPaid flips the payout flag on an existing payment
func (r *PaymentRepository) SetTutorPaid(ctx context.Context, paymentID string, paid bool, at time.Time) error {
	fields := map[string]interface{}{
		models.FieldTutorPaid: paid,
		models.FieldUpdatedAt: at,
	}
	if paid {
		fields[models.FieldTutorPaidAt] = at
	} else {
		fields[models.FieldTutorPaidAt] = nil
	}

	if err := r.store.Update(ctx, models.CollectionPayments, paymentID, fields); err != nil {
		return fmt.Errorf("failed to update tutor payout for %s: %w", paymentID, err)
	}
	return nil
}
