package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorconnect/payment-bridge/internal/config"
	"github.com/tutorconnect/payment-bridge/internal/database"
	"github.com/tutorconnect/payment-bridge/internal/models"
	"github.com/tutorconnect/payment-bridge/internal/services"
	"github.com/tutorconnect/payment-bridge/pkg/gateway"
	"github.com/tutorconnect/payment-bridge/pkg/jwt"
)

const (
	testWebhookSecret = "whsec_handler_test"
	testAdminSecret   = "admin-secret-for-handler-tests"
)

type stubSessions struct {
	calls int
	err   error
}

func (s *stubSessions) CreateCheckoutSession(_ context.Context, p *gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type testServer struct {
	router   *gin.Engine
	store    *database.MemoryStore
	sessions *stubSessions
	jwt      *jwt.Service
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := quietLogger()

	store := database.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), models.CollectionBookings, "b1", map[string]interface{}{"paymentStatus": "pending"}))
	payments := database.NewPaymentRepository(store)

	verifier := gateway.NewStripeGateway(gateway.StripeConfig{
		WebhookSecret:    testWebhookSecret,
		WebhookTolerance: 5 * time.Minute,
		Timeout:          time.Second,
	}, logger)

	sessions := &stubSessions{}
	checkout := services.NewCheckoutService(sessions, services.CheckoutConfig{
		DefaultCurrency: "inr",
		ProductName:     "Tutor Booking Payment",
		AppURL:          "https://app.example.com",
	}, logger)
	reconciler := services.NewWebhookReconciler(verifier, payments, database.NewBookingRepository(store), time.Second, logger)
	jwtService := jwt.NewService(testAdminSecret, time.Hour)

	router := NewRouter(RouterDeps{
		Checkout: NewCheckoutHandler(checkout, logger),
		Webhook:  NewWebhookHandler(reconciler, logger),
		Health:   NewHealthHandler(store),
		Admin:    NewPaymentAdminHandler(services.NewPaymentAdminService(payments, nil, logger), logger),
		AdminJWT: jwtService,
		CORS:     config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST", "PATCH"}},
		Logger:   logger,
	})

	return &testServer{router: router, store: store, sessions: sessions, jwt: jwtService}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func completedEvent(eventID string, metadata map[string]string) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":      eventID,
		"object":  "event",
		"created": time.Now().Unix(),
		"type":    gateway.EventTypeCheckoutSessionCompleted,
		"data": map[string]interface{}{"object": map[string]interface{}{
			"id":             "cs_test_1",
			"object":         "checkout.session",
			"amount_total":   150000,
			"currency":       "inr",
			"payment_intent": "pi_123",
			"metadata":       metadata,
		}},
	})
	return payload
}

func webhookRequest(path string, payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(gateway.SignatureHeader, signature)
	}
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["store"])
	assert.NotEmpty(t, body["message"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth_StoreStates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		handler  *HealthHandler
		expected string
	}{
		{"not configured", NewHealthHandler(nil), "not_configured"},
		{"unavailable", NewHealthHandler(failingPinger{}), "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", tt.handler.Health)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.expected)
		})
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	for _, path := range []string{"/create-checkout-session", "/api/create-checkout-session"} {
		t.Run(path, func(t *testing.T) {
			s := newTestServer(t)
			body := `{"amount": 1500, "bookingId": "b1", "tutorId": "t1", "parentId": "p1"}`

			w := s.do(httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))

			assert.Equal(t, http.StatusOK, w.Code)
			var resp models.CreateCheckoutSessionResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			assert.Equal(t, "cs_test_1", resp.SessionID)
			assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", resp.SessionURL)
		})
	}
}

func TestCreateCheckoutSession_MissingFields(t *testing.T) {
	s := newTestServer(t)
	body := `{"amount": 0, "bookingId": "b1"}`

	w := s.do(httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields")
	assert.Contains(t, w.Body.String(), "tutorId")
	assert.Equal(t, 0, s.sessions.calls)
}

func TestCreateCheckoutSession_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(`{"amount": "lots"`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
	assert.Equal(t, 0, s.sessions.calls)
}

func TestCreateCheckoutSession_GatewayFailure(t *testing.T) {
	s := newTestServer(t)
	s.sessions.err = errors.New("Invalid API Key provided")
	body := `{"amount": 1500, "bookingId": "b1", "tutorId": "t1", "parentId": "p1"}`

	w := s.do(httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to create checkout session", resp["error"])
	assert.Equal(t, "Invalid API Key provided", resp["message"])
}

func TestPaymentWebhook_Success(t *testing.T) {
	for _, path := range []string{"/payment-webhook", "/api/stripe-webhook"} {
		t.Run(path, func(t *testing.T) {
			s := newTestServer(t)
			payload := completedEvent("evt_1", map[string]string{"bookingId": "b1", "parentId": "p1", "tutorId": "t1"})

			w := s.do(webhookRequest(path, payload, gateway.SignPayload(payload, testWebhookSecret, time.Now())))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"received": true}`, w.Body.String())
			assert.Equal(t, 1, s.store.Count(models.CollectionPayments))

			var booking map[string]interface{}
			require.NoError(t, s.store.Get(context.Background(), models.CollectionBookings, "b1", &booking))
			assert.Equal(t, "paid", booking["paymentStatus"])
		})
	}
}

func TestPaymentWebhook_InvalidSignature(t *testing.T) {
	s := newTestServer(t)
	payload := completedEvent("evt_1", map[string]string{"bookingId": "b1"})

	w := s.do(webhookRequest("/payment-webhook", payload, gateway.SignPayload(payload, "whsec_wrong", time.Now())))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Webhook Error: "))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, 0, s.store.Count(models.CollectionPayments))
}

func TestPaymentWebhook_MissingSignature(t *testing.T) {
	s := newTestServer(t)
	payload := completedEvent("evt_1", map[string]string{"bookingId": "b1"})

	w := s.do(webhookRequest("/payment-webhook", payload, ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Stripe-Signature")
	assert.Equal(t, 0, s.store.Count(models.CollectionPayments))
}

func TestPaymentWebhook_BodyTooLarge(t *testing.T) {
	s := newTestServer(t)
	payload := bytes.Repeat([]byte("a"), int(MaxWebhookBodyBytes)+1)

	w := s.do(webhookRequest("/payment-webhook", payload, gateway.SignPayload(payload, testWebhookSecret, time.Now())))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Webhook Error: "))
}

func TestPaymentWebhook_PersistenceWarning(t *testing.T) {
	s := newTestServer(t)
	payload := completedEvent("evt_1", map[string]string{"bookingId": "b_unknown"})

	w := s.do(webhookRequest("/payment-webhook", payload, gateway.SignPayload(payload, testWebhookSecret, time.Now())))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack models.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.Received)
	assert.Equal(t, services.WarningPaymentNotSaved, ack.Warning)
}

func adminRequest(method, path, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAdminPayments(t *testing.T) {
	s := newTestServer(t)
	payload := completedEvent("evt_1", map[string]string{"bookingId": "b1", "tutorId": "t1"})
	w := s.do(webhookRequest("/payment-webhook", payload, gateway.SignPayload(payload, testWebhookSecret, time.Now())))
	require.Equal(t, http.StatusOK, w.Code)

	token, err := s.jwt.GenerateAccessToken("ops", []string{jwt.RoleAdmin})
	require.NoError(t, err)

	t.Run("Unauthenticated", func(t *testing.T) {
		w := s.do(adminRequest(http.MethodGet, "/api/admin/payments/pi_123", "", ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Get", func(t *testing.T) {
		w := s.do(adminRequest(http.MethodGet, "/api/admin/payments/pi_123", "", token))
		assert.Equal(t, http.StatusOK, w.Code)

		var payment models.PaymentRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
		assert.Equal(t, "pi_123", payment.PaymentID)
		assert.False(t, payment.TutorPaid)
	})

	t.Run("Get Missing", func(t *testing.T) {
		w := s.do(adminRequest(http.MethodGet, "/api/admin/payments/pi_nope", "", token))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Mark Tutor Paid", func(t *testing.T) {
		w := s.do(adminRequest(http.MethodPatch, "/api/admin/payments/pi_123/tutor-paid", `{"tutorPaid": true}`, token))
		assert.Equal(t, http.StatusOK, w.Code)

		var payment models.PaymentRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
		assert.True(t, payment.TutorPaid)
		assert.NotNil(t, payment.TutorPaidAt)
	})

	t.Run("Redelivery Keeps Payout", func(t *testing.T) {
		w := s.do(webhookRequest("/payment-webhook", payload, gateway.SignPayload(payload, testWebhookSecret, time.Now())))
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(adminRequest(http.MethodGet, "/api/admin/payments/pi_123", "", token))
		var payment models.PaymentRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
		assert.True(t, payment.TutorPaid)
	})

	t.Run("Missing Flag", func(t *testing.T) {
		w := s.do(adminRequest(http.MethodPatch, "/api/admin/payments/pi_123/tutor-paid", `{}`, token))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Update Missing", func(t *testing.T) {
		w := s.do(adminRequest(http.MethodPatch, "/api/admin/payments/pi_nope/tutor-paid", `{"tutorPaid": false}`, token))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminRoutesNotMountedWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := quietLogger()
	router := NewRouter(RouterDeps{
		Checkout: NewCheckoutHandler(&stubCheckout{}, logger),
		Webhook:  NewWebhookHandler(&stubWebhook{}, logger),
		Health:   NewHealthHandler(nil),
		Logger:   logger,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/payments/pi_123", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubCheckout struct{}

func (stubCheckout) CreateSession(context.Context, *models.CreateCheckoutSessionRequest) (*models.CreateCheckoutSessionResponse, error) {
	return nil, errors.New("unused")
}

type stubWebhook struct{ err error }

func (s *stubWebhook) HandleWebhook(context.Context, services.WebhookDelivery) (*services.WebhookOutcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.WebhookOutcome{}, nil
}

func TestPaymentWebhook_UnexpectedErrorStillAcknowledged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := quietLogger()
	handler := NewWebhookHandler(&stubWebhook{err: errors.New("boom")}, logger)

	router := gin.New()
	router.POST("/payment-webhook", handler.PaymentWebhook)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, webhookRequest("/payment-webhook", []byte(`{}`), "t=1,v1=x"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
}
