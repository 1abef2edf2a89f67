package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/models"
	"github.com/tutorconnect/payment-bridge/pkg/gateway"
)

// CheckoutConfig holds the settings used to build checkout sessions
type CheckoutConfig struct {
	DefaultCurrency string
	ProductName     string
	AppURL          string
}

// CheckoutService starts hosted checkout sessions for booking payments
type CheckoutService struct {
	gateway  gateway.SessionCreator
	config   CheckoutConfig
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(sessions gateway.SessionCreator, cfg CheckoutConfig, logger *logrus.Logger) *CheckoutService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so errors match the request body
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return &CheckoutService{
		gateway:  sessions,
		config:   cfg,
		validate: validate,
		logger:   logger,
	}
}

// CreateSession validates the request and creates a checkout session with the gateway
func (s *CheckoutService) CreateSession(ctx context.Context, req *models.CreateCheckoutSessionRequest) (*models.CreateCheckoutSessionResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	clientReference := req.ClientReference
	if clientReference == "" {
		clientReference = req.BookingID
	}

	bookingParam := url.QueryEscape(req.BookingID)
	params := &gateway.CheckoutSessionParams{
		AmountMinor:     gateway.ToMinorUnits(req.Amount),
		Currency:        currency,
		ProductName:     s.config.ProductName,
		Description:     fmt.Sprintf("Booking ID: %s", req.BookingID),
		SuccessURL:      fmt.Sprintf("%s/payment-success?session_id={CHECKOUT_SESSION_ID}&booking_id=%s", s.config.AppURL, bookingParam),
		CancelURL:       fmt.Sprintf("%s/payment-cancel?booking_id=%s", s.config.AppURL, bookingParam),
		ClientReference: clientReference,
		Metadata: map[string]string{
			"bookingId": req.BookingID,
			"parentId":  req.ParentID,
			"tutorId":   req.TutorID,
		},
	}

	log := s.logger.WithFields(logrus.Fields{
		"booking_id":   req.BookingID,
		"amount":       req.Amount.String(),
		"amount_minor": params.AmountMinor,
		"currency":     currency,
	})
	log.Info("Creating checkout session")

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		log.WithError(err).Error("Checkout session creation failed")
		return nil, &GatewayError{
			Op:      "create checkout session",
			Message: gateway.ErrorMessage(err),
			Err:     err,
		}
	}

	return &models.CreateCheckoutSessionResponse{
		Success:    true,
		SessionURL: session.URL,
		SessionID:  session.ID,
	}, nil
}

func (s *CheckoutService) validateRequest(req *models.CreateCheckoutSessionRequest) error {
	if req == nil {
		return &ValidationError{Message: "request body is required"}
	}

	var fields []string
	if !req.Amount.IsPositive() {
		fields = append(fields, "amount")
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Message: err.Error()}
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
