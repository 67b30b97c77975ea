package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration (token validation only - tokens are issued by the
	// identity service)
	JWT JWTConfig

	// Booking configuration
	Booking BookingConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret string
}

// BookingConfig holds seat allocation limits and hold behaviour
type BookingConfig struct {
	MaxSeatsPerBooking int
	// HoldTTL is how long a PENDING_PAYMENT group keeps its seats before the
	// expiry sweep releases them.
	HoldTTL time.Duration
}

// PaymentConfig holds payment gateway configuration for both gateways.
// BaseCurrency is the domestic currency every fare is computed in. Razorpay
// settles in INR, so charges through it are converted with ExchangeRateINR
// and the rate used is persisted on the payment row.
type PaymentConfig struct {
	BaseCurrency    string
	ExchangeRateINR float64

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	EsewaProductCode string
	EsewaSecretKey   string
	EsewaSuccessURL  string
	EsewaFailureURL  string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Booking: BookingConfig{
			MaxSeatsPerBooking: getEnvAsInt("BOOKING_MAX_SEATS", 6),
			HoldTTL:            time.Duration(getEnvAsInt("BOOKING_HOLD_TTL", 900)) * time.Second,
		},
		Payment: PaymentConfig{
			BaseCurrency:          getEnv("PAYMENT_BASE_CURRENCY", "NPR"),
			ExchangeRateINR:       getEnvAsFloat("PAYMENT_NPR_TO_INR_RATE", 0.625),
			RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			EsewaProductCode:      getEnv("ESEWA_PRODUCT_CODE", "EPAYTEST"),
			EsewaSecretKey:        getEnv("ESEWA_SECRET_KEY", ""),
			EsewaSuccessURL:       getEnv("ESEWA_SUCCESS_URL", ""),
			EsewaFailureURL:       getEnv("ESEWA_FAILURE_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
		},
	}

	// Validate required configuration
	if config.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if config.Payment.ExchangeRateINR <= 0 {
		return nil, fmt.Errorf("PAYMENT_NPR_TO_INR_RATE must be positive")
	}
	if config.Booking.MaxSeatsPerBooking <= 0 {
		return nil, fmt.Errorf("BOOKING_MAX_SEATS must be positive")
	}

	return config, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsFloat retrieves an environment variable as a float
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsSlice retrieves a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
