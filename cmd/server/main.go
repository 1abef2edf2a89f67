package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tutorconnect/payment-bridge/internal/cache"
	"github.com/tutorconnect/payment-bridge/internal/config"
	"github.com/tutorconnect/payment-bridge/internal/database"
	"github.com/tutorconnect/payment-bridge/internal/events"
	"github.com/tutorconnect/payment-bridge/internal/handlers"
	"github.com/tutorconnect/payment-bridge/internal/services"
	"github.com/tutorconnect/payment-bridge/pkg/gateway"
	"github.com/tutorconnect/payment-bridge/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TutorConnect payment bridge")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout session creation will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, every webhook will be rejected")
	}

	stripeGateway := gateway.NewStripeGateway(gateway.StripeConfig{
		SecretKey:         cfg.Stripe.SecretKey,
		WebhookSecret:     cfg.Stripe.WebhookSecret,
		WebhookTolerance:  cfg.Stripe.WebhookTolerance,
		Timeout:           cfg.Stripe.Timeout,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
	}, logger)

	// Document store; the server keeps running without one and acks webhooks with a warning
	var (
		store database.DocumentStore
		db    *sqlx.DB
	)
	switch {
	case !cfg.StoreConfigured():
		logger.Warn("DATABASE_URL not set, payments will not be persisted")
	case cfg.Database.Driver == "memory":
		logger.Warn("Using in-memory document store, data is lost on restart")
		store = database.NewMemoryStore()
	default:
		db, err = openDatabase(cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Error("Document store unavailable, payments will not be persisted")
		} else {
			defer db.Close()
			store = database.NewPostgresStore(db)
		}
	}

	checkoutService := services.NewCheckoutService(stripeGateway, services.CheckoutConfig{
		DefaultCurrency: cfg.Stripe.DefaultCurrency,
		ProductName:     cfg.Stripe.ProductName,
		AppURL:          cfg.App.PublicURL,
	}, logger)

	var (
		paymentRepo  *database.PaymentRepository
		reconciler   *services.WebhookReconciler
		auditRepo    *database.PaymentAuditRepository
		healthPinger handlers.Pinger
		adminHandler *handlers.PaymentAdminHandler
		adminJWT     *jwt.Service
		storeTimeout = cfg.Database.OperationTimeout
	)
	if store != nil {
		paymentRepo = database.NewPaymentRepository(store)
		bookingRepo := database.NewBookingRepository(store)
		reconciler = services.NewWebhookReconciler(stripeGateway, paymentRepo, bookingRepo, storeTimeout, logger)
		healthPinger = store
	} else {
		// Untyped nils so the reconciler sees the store as absent
		reconciler = services.NewWebhookReconciler(stripeGateway, nil, nil, storeTimeout, logger)
	}

	if db != nil {
		auditRepo = database.NewPaymentAuditRepository(db, logger)
		reconciler.SetAuditLogger(auditRepo)
	}

	redisClient := connectRedis(cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
		reconciler.SetEventLedger(cache.NewRedisEventLedger(redisClient, cfg.Redis.EventTTL))
	}

	if cfg.Broker.URL != "" {
		publisher, err := events.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unavailable, payment.completed events disabled")
		} else {
			defer publisher.Close()
			reconciler.SetPublisher(publisher)
			logger.WithField("exchange", cfg.Broker.Exchange).Info("Publishing payment events to RabbitMQ")
		}
	}

	if cfg.Admin.JWTSecret != "" && paymentRepo != nil {
		adminJWT = jwt.NewService(cfg.Admin.JWTSecret, cfg.Admin.TokenExpiry)
		var audit services.AuditLogger
		if auditRepo != nil {
			audit = auditRepo
		}
		adminService := services.NewPaymentAdminService(paymentRepo, audit, logger)
		adminHandler = handlers.NewPaymentAdminHandler(adminService, logger)
		logger.Info("Tutor payout admin API enabled")
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Checkout: handlers.NewCheckoutHandler(checkoutService, logger),
		Webhook:  handlers.NewWebhookHandler(reconciler, logger),
		Health:   handlers.NewHealthHandler(healthPinger),
		Admin:    adminHandler,
		AdminJWT: adminJWT,
		CORS:     cfg.CORS,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Stripe.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

func openDatabase(cfg config.DatabaseConfig, logger *logrus.Logger) (*sqlx.DB, error) {
	logger.WithField("driver", cfg.Driver).Info("Connecting to database...")
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.OperationTimeout)
		defer cancel()
		if err := database.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("Database connection established")
	return db, nil
}

func connectRedis(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, webhook event ledger disabled")
		return nil
	}
	return client
}
