package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/middleware"
	"github.com/tutorconnect/payment-bridge/internal/models"
	"github.com/tutorconnect/payment-bridge/internal/services"
)

// PaymentAdmin reads payments and records tutor payouts
type PaymentAdmin interface {
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	SetTutorPaid(ctx context.Context, paymentID string, paid bool, actor string) (*models.PaymentRecord, error)
}

// PaymentAdminHandler handles the tutor payout admin endpoints
type PaymentAdminHandler struct {
	admin  PaymentAdmin
	logger *logrus.Logger
}

// NewPaymentAdminHandler creates a new PaymentAdminHandler
func NewPaymentAdminHandler(admin PaymentAdmin, logger *logrus.Logger) *PaymentAdminHandler {
	return &PaymentAdminHandler{
		admin:  admin,
		logger: logger,
	}
}

// GetPayment returns a payment record
// GET /api/admin/payments/:paymentId
func (h *PaymentAdminHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("paymentId")

	payment, err := h.admin.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.respondError(c, paymentID, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// UpdateTutorPaid marks a payment's tutor payout as done or pending
// PATCH /api/admin/payments/:paymentId/tutor-paid
func (h *PaymentAdminHandler) UpdateTutorPaid(c *gin.Context) {
	paymentID := c.Param("paymentId")

	var req models.UpdateTutorPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	actor := ""
	if adminCtx, ok := middleware.GetAdminContext(c); ok {
		actor = adminCtx.Subject
	}

	payment, err := h.admin.SetTutorPaid(c.Request.Context(), paymentID, *req.TutorPaid, actor)
	if err != nil {
		h.respondError(c, paymentID, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *PaymentAdminHandler) respondError(c *gin.Context, paymentID string, err error) {
	if errors.Is(err, services.ErrPaymentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	h.logger.WithError(err).WithField("payment_id", paymentID).Error("Payment admin request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process payment"})
}
