package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorconnect/payment-bridge/internal/database"
	"github.com/tutorconnect/payment-bridge/internal/models"
)

func newAdminFixture(t *testing.T) (*PaymentAdminService, *database.PaymentRepository, *recordingAudit) {
	t.Helper()
	repo := database.NewPaymentRepository(database.NewMemoryStore())
	require.NoError(t, repo.SavePayment(context.Background(), &models.PaymentRecord{
		PaymentID: "pi_123",
		BookingID: "b1",
		Amount:    1500,
		Currency:  "inr",
		Status:    models.PaymentStatusCompleted,
		CreatedAt: eventCreated,
		UpdatedAt: eventCreated,
	}))

	audit := &recordingAudit{}
	service := NewPaymentAdminService(repo, audit, quietLogger())
	service.now = func() time.Time { return eventCreated.Add(time.Hour) }
	return service, repo, audit
}

func TestPaymentAdmin_GetPayment(t *testing.T) {
	service, _, _ := newAdminFixture(t)

	payment, err := service.GetPayment(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "b1", payment.BookingID)

	_, err = service.GetPayment(context.Background(), "pi_missing")
	assert.True(t, errors.Is(err, ErrPaymentNotFound))
}

func TestPaymentAdmin_SetTutorPaid(t *testing.T) {
	service, _, audit := newAdminFixture(t)

	payment, err := service.SetTutorPaid(context.Background(), "pi_123", true, "ops")
	require.NoError(t, err)

	assert.True(t, payment.TutorPaid)
	require.NotNil(t, payment.TutorPaidAt)
	assert.True(t, eventCreated.Add(time.Hour).Equal(*payment.TutorPaidAt))
	assert.True(t, eventCreated.Add(time.Hour).Equal(payment.UpdatedAt))
	assert.True(t, eventCreated.Equal(payment.CreatedAt))

	require.Equal(t, []models.PaymentEventType{models.PaymentEventTutorPaidUpdated}, audit.types())
	require.NotNil(t, audit.entries[0].Actor)
	assert.Equal(t, "ops", *audit.entries[0].Actor)
	assert.Equal(t, models.PaymentSourceAdmin, audit.entries[0].EventSource)

	payment, err = service.SetTutorPaid(context.Background(), "pi_123", false, "ops")
	require.NoError(t, err)
	assert.False(t, payment.TutorPaid)
	assert.Nil(t, payment.TutorPaidAt)
}

func TestPaymentAdmin_SetTutorPaidMissing(t *testing.T) {
	service, _, audit := newAdminFixture(t)

	_, err := service.SetTutorPaid(context.Background(), "pi_missing", true, "ops")
	assert.True(t, errors.Is(err, ErrPaymentNotFound))
	assert.Empty(t, audit.types())
}

func TestPaymentAdmin_WithoutAudit(t *testing.T) {
	repo := database.NewPaymentRepository(database.NewMemoryStore())
	require.NoError(t, repo.SavePayment(context.Background(), &models.PaymentRecord{PaymentID: "pi_1"}))

	service := NewPaymentAdminService(repo, nil, quietLogger())
	payment, err := service.SetTutorPaid(context.Background(), "pi_1", true, "")
	require.NoError(t, err)
	assert.True(t, payment.TutorPaid)
}
