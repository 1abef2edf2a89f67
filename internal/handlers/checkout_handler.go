package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/models"
	"github.com/tutorconnect/payment-bridge/internal/services"
)

// CheckoutCreator starts checkout sessions
type CheckoutCreator interface {
	CreateSession(ctx context.Context, req *models.CreateCheckoutSessionRequest) (*models.CreateCheckoutSessionResponse, error)
}

// CheckoutHandler handles checkout session endpoints
type CheckoutHandler struct {
	checkout CheckoutCreator
	logger   *logrus.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout CheckoutCreator, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		logger:   logger,
	}
}

// ============================================================================
// CREATE CHECKOUT SESSION - POST /create-checkout-session
// ============================================================================

// CreateCheckoutSession creates a hosted checkout session for a booking
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid checkout session request body")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	resp, err := h.checkout.CreateSession(c.Request.Context(), &req)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Missing required fields: amount, bookingId, tutorId, parentId",
				"fields": validationErr.Fields,
			})
			return
		}

		var gatewayErr *services.GatewayError
		if errors.As(err, &gatewayErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to create checkout session",
				"message": gatewayErr.Message,
			})
			return
		}

		h.logger.WithError(err).Error("Unexpected checkout session failure")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create checkout session",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
