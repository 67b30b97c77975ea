package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/config"
	"github.com/sajhabus/booking-backend/internal/database"
	"github.com/sajhabus/booking-backend/internal/handlers"
	"github.com/sajhabus/booking-backend/internal/metrics"
	"github.com/sajhabus/booking-backend/internal/middleware"
	"github.com/sajhabus/booking-backend/internal/services"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SajhaBus Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	tripRepo := database.NewTripRepository(db)
	holidayRepo := database.NewHolidayRepository(db)
	couponRepo := database.NewCouponRepository(db)
	bookingRepo := database.NewBookingRepository(db.DB)
	paymentRepo := database.NewPaymentRepository(db.DB)

	// Initialize services
	logger.Info("Initializing services...")
	fareService := services.NewFareService()
	holidayService := services.NewHolidayService(holidayRepo)
	couponService := services.NewCouponService(couponRepo)
	searchService := services.NewSearchService(tripRepo, holidayService, fareService, logger)
	bookingService := services.NewBookingService(
		tripRepo, bookingRepo, paymentRepo,
		holidayService, fareService, couponService,
		cfg.Booking, logger,
	)
	paymentService := services.NewPaymentService(
		paymentRepo, bookingRepo,
		[]services.PaymentGateway{
			services.NewRazorpayGateway(cfg.Payment, logger),
			services.NewEsewaGateway(cfg.Payment, logger),
		},
		cfg.Payment, logger,
	)

	// Start the hold expiry sweep
	cronService := services.NewCronService(bookingService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	searchHandler := handlers.NewSearchHandler(searchService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(metrics.Middleware())

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health and metrics endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", metrics.Handler())

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Public: search and seat maps
		v1.GET("/search", searchHandler.SearchTrips)
		v1.GET("/trips/:id/seats", searchHandler.TripSeats)

		// Gateway callbacks authenticate via signature, not JWT
		v1.POST("/payments/razorpay/callback", paymentHandler.RazorpayCallback)
		v1.POST("/payments/esewa/callback", paymentHandler.EsewaCallback)

		// Authenticated: bookings and payments
		auth := v1.Group("")
		auth.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
		{
			auth.POST("/bookings", bookingHandler.CreateBooking)
			auth.GET("/bookings/:id", bookingHandler.GetBooking)
			auth.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)

			auth.POST("/payments/initiate", paymentHandler.InitiatePayment)
			auth.POST("/payments/:bookingGroupId/refund", paymentHandler.RefundPayment)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler reports service and database health
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"version":  version,
			"database": "connected",
		})
	}
}
