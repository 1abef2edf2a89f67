package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document collections
const (
	CollectionPayments = "payments"
	CollectionBookings = "bookings"
)

// PaymentStatus represents the lifecycle state of a payment record
type PaymentStatus string

const (
	// PaymentStatusCompleted is the only status produced by webhook reconciliation
	PaymentStatusCompleted PaymentStatus = "completed"
)

// BookingPaymentStatusPaid is written to a booking once its payment completes
const BookingPaymentStatusPaid = "paid"

// Payment record fields that belong to the tutor payout process. A redelivered
// completion event must never overwrite them.
const (
	FieldTutorPaid   = "tutorPaid"
	FieldTutorPaidAt = "tutorPaidAt"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
)

// PaymentRecord is one completed payment, keyed by PaymentID
type PaymentRecord struct {
	PaymentID        string          `json:"paymentId"`
	BookingID        string          `json:"bookingId,omitempty"`
	ParentID         string          `json:"parentId,omitempty"`
	TutorID          string          `json:"tutorId,omitempty"`
	Amount           float64         `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status"`
	PaymentMethod    string          `json:"paymentMethod"`
	GatewaySessionID string          `json:"gatewaySessionId"`
	GatewayIntentID  *string         `json:"gatewayIntentId"`
	TransactionID    string          `json:"transactionId"`
	CreatedAt        time.Time       `json:"createdAt"`
	CompletedAt      time.Time       `json:"completedAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	TutorPaid        bool            `json:"tutorPaid"`
	TutorPaidAt      *time.Time      `json:"tutorPaidAt,omitempty"`
	Metadata         PaymentMetadata `json:"metadata"`
}

// PaymentMetadata is the customer contact snapshot taken from the checkout session
type PaymentMetadata struct {
	CustomerEmail   string           `json:"customerEmail,omitempty"`
	CustomerDetails *CustomerDetails `json:"customerDetails,omitempty"`
}

// CustomerDetails holds the payer contact info collected by the gateway
type CustomerDetails struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// BookingPaymentUpdate is the partial update merged into an externally owned booking
type BookingPaymentUpdate struct {
	PaymentStatus string
	PaymentID     string
	PaymentDate   time.Time
	UpdatedAt     time.Time
}

// Fields returns the update as a document field map
func (u BookingPaymentUpdate) Fields() map[string]interface{} {
	return map[string]interface{}{
		"paymentStatus": u.PaymentStatus,
		"paymentId":     u.PaymentID,
		"paymentDate":   u.PaymentDate,
		"updatedAt":     u.UpdatedAt,
	}
}

// CreateCheckoutSessionRequest is the body of POST /create-checkout-session
type CreateCheckoutSessionRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	BookingID       string          `json:"bookingId" validate:"required"`
	TutorID         string          `json:"tutorId" validate:"required"`
	ParentID        string          `json:"parentId" validate:"required"`
	Currency        string          `json:"currency,omitempty" validate:"omitempty,alpha,len=3"`
	ClientReference string          `json:"clientReference,omitempty"`
}

// CreateCheckoutSessionResponse is returned after a checkout session is created
type CreateCheckoutSessionResponse struct {
	Success    bool   `json:"success"`
	SessionURL string `json:"sessionUrl"`
	SessionID  string `json:"sessionId"`
}

// UpdateTutorPaidRequest is the body of PATCH /api/admin/payments/:paymentId/tutor-paid
type UpdateTutorPaidRequest struct {
	TutorPaid *bool `json:"tutorPaid" binding:"required"`
}

// WebhookAck is the acknowledgment returned to the gateway
type WebhookAck struct {
	Received bool   `json:"received"`
	Warning  string `json:"warning,omitempty"`
}
