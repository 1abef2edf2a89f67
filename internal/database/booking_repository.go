package database

import (
	"context"
	"fmt"

	"github.com/tutorconnect/payment-bridge/internal/models"
)

// BookingRepository applies payment state to bookings owned by the booking service
type BookingRepository struct {
	store DocumentStore
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(store DocumentStore) *BookingRepository {
	return &BookingRepository{store: store}
}

// MarkPaid merges the payment fields into an existing booking. Bookings are
// never created here; a missing booking surfaces ErrDocumentNotFound.
func (r *BookingRepository) MarkPaid(ctx context.Context, bookingID string, update models.BookingPaymentUpdate) error {
	if bookingID == "" {
		return fmt.Errorf("booking id is required")
	}

	if err := r.store.Update(ctx, models.CollectionBookings, bookingID, update.Fields()); err != nil {
		return fmt.Errorf("failed to mark booking %s paid: %w", bookingID, err)
	}
	return nil
}
