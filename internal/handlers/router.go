package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/config"
	"github.com/tutorconnect/payment-bridge/internal/middleware"
	"github.com/tutorconnect/payment-bridge/pkg/jwt"
)

// RouterDeps collects everything the HTTP surface needs. Admin and AdminJWT
// are optional; the admin routes are only mounted when both are set.
type RouterDeps struct {
	Checkout *CheckoutHandler
	Webhook  *WebhookHandler
	Health   *HealthHandler
	Admin    *PaymentAdminHandler
	AdminJWT *jwt.Service
	CORS     config.CORSConfig
	Logger   *logrus.Logger
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(cors.New(corsConfig(deps.CORS)))

	router.GET("/health", deps.Health.Health)

	// Webhook routes read the raw body themselves; no JSON middleware runs before them
	router.POST("/payment-webhook", deps.Webhook.PaymentWebhook)
	router.POST("/api/stripe-webhook", deps.Webhook.PaymentWebhook)

	router.POST("/create-checkout-session", deps.Checkout.CreateCheckoutSession)
	router.POST("/api/create-checkout-session", deps.Checkout.CreateCheckoutSession)

	if deps.Admin != nil && deps.AdminJWT != nil {
		admin := router.Group("/api/admin")
		admin.Use(middleware.AuthMiddleware(deps.AdminJWT, deps.Logger))
		admin.Use(middleware.RequireRole(jwt.RoleAdmin))
		{
			admin.GET("/payments/:paymentId", deps.Admin.GetPayment)
			admin.PATCH("/payments/:paymentId/tutor-paid", deps.Admin.UpdateTutorPaid)
		}
	}

	return router
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}

	c.AllowOrigins = cfg.AllowedOrigins
	c.AllowCredentials = true
	return c
}
