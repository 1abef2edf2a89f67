package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/models"
	"github.com/tutorconnect/payment-bridge/internal/services"
	"github.com/tutorconnect/payment-bridge/pkg/gateway"
)

// MaxWebhookBodyBytes caps the size of a webhook payload
const MaxWebhookBodyBytes int64 = 64 << 10

// WebhookProcessor reconciles verified webhook deliveries
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, delivery services.WebhookDelivery) (*services.WebhookOutcome, error)
}

// WebhookHandler receives payment gateway webhooks
type WebhookHandler struct {
	reconciler WebhookProcessor
	logger     *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(reconciler WebhookProcessor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// ============================================================================
// PAYMENT WEBHOOK - POST /payment-webhook
// ============================================================================

// PaymentWebhook verifies the signed payload and acknowledges it.
// Responds 400 with plain text when the delivery cannot be authenticated and
// 200 {received: true} for every verified delivery.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	// The signature covers the exact bytes, so read them before anything parses the body
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes)
	payload, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read webhook body")
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	outcome, err := h.reconciler.HandleWebhook(c.Request.Context(), services.WebhookDelivery{
		Payload:   payload,
		Signature: c.GetHeader(gateway.SignatureHeader),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		var sigErr *services.SignatureVerificationError
		if errors.As(err, &sigErr) {
			c.String(http.StatusBadRequest, "Webhook Error: %s", sigErr.Error())
			return
		}
		// Unexpected, but still acknowledge so the gateway does not start a retry storm
		h.logger.WithError(err).Error("Webhook reconciliation failed")
		c.JSON(http.StatusOK, models.WebhookAck{Received: true, Warning: "webhook not processed"})
		return
	}

	c.JSON(http.StatusOK, models.WebhookAck{Received: true, Warning: outcome.Warning})
}
