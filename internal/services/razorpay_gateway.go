package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/config"
	"github.com/sajhabus/booking-backend/internal/models"
)

const razorpayAPIBase = "https://api.razorpay.com/v1"

// RazorpayGateway charges through Razorpay. Razorpay settles in INR, so the
// payment handed to CreateIntent already carries the converted amount; this
// adapter only talks the wire protocol.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
	logger        *logrus.Logger
}

// NewRazorpayGateway creates a new RazorpayGateway
func NewRazorpayGateway(cfg config.PaymentConfig, logger *logrus.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:         cfg.RazorpayKeyID,
		keySecret:     cfg.RazorpayKeySecret,
		webhookSecret: cfg.RazorpayWebhookSecret,
		baseURL:       razorpayAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Method identifies this gateway
func (g *RazorpayGateway) Method() models.PaymentMethod {
	return models.PaymentMethodRazorpay
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"` // paise
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent creates a Razorpay order for the converted amount and records
// its ID on the payment
func (g *RazorpayGateway) CreateIntent(payment *models.Payment, group *models.BookingGroup) (*models.GatewayIntent, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, models.NewExternalError(models.CodeGatewayNotConfigured,
			"razorpay credentials are not configured")
	}

	// Razorpay wants the amount in the currency's smallest unit
	request := razorpayOrderRequest{
		Amount:   int64(math.Round(payment.ChargedAmount * 100)),
		Currency: payment.ChargedCurrency,
		Receipt:  group.BookingReference,
		Notes: map[string]string{
			"booking_group_id": group.ID,
		},
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, g.baseURL+"/orders", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).Error("Failed to call Razorpay orders endpoint")
		return nil, models.NewExternalError(models.CodeGatewayError,
			"failed to reach the payment gateway")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(body),
		}).Error("Razorpay order creation rejected")
		return nil, models.NewExternalError(models.CodeGatewayError,
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode))
	}

	var order razorpayOrderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}
	if order.ID == "" {
		return nil, models.NewExternalError(models.CodeGatewayError,
			"payment gateway returned no order id")
	}

	payment.GatewayOrderID = &order.ID

	return &models.GatewayIntent{
		PaymentID: payment.ID,
		Method:    models.PaymentMethodRazorpay,
		Amount:    payment.ChargedAmount,
		Currency:  payment.ChargedCurrency,
		OrderID:   order.ID,
		KeyID:     g.keyID,
	}, nil
}

// VerifyCallback authenticates a callback before anything in it is trusted.
// Success callbacks carry the checkout signature: HMAC-SHA256 over
// "<order_id>|<razorpay_payment_id>" keyed with the key secret, hex encoded.
// Failure notifications are delivered through the webhook channel and carry
// the X-Razorpay-Signature HMAC over the raw body, keyed with the webhook
// secret; without a valid one the callback is rejected and no state moves.
func (g *RazorpayGateway) VerifyCallback(payment *models.Payment, callback *models.GatewayCallback) error {
	if g.keySecret == "" {
		return models.NewExternalError(models.CodeGatewayNotConfigured,
			"razorpay credentials are not configured")
	}
	if !callback.Success {
		return g.verifyWebhookSignature(callback)
	}

	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(callback.OrderID + "|" + callback.GatewayRef))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(callback.Signature)) {
		return models.NewExternalError(models.CodeSignatureMismatch,
			"callback signature does not match")
	}
	return nil
}

func (g *RazorpayGateway) verifyWebhookSignature(callback *models.GatewayCallback) error {
	if g.webhookSecret == "" {
		return models.NewExternalError(models.CodeGatewayNotConfigured,
			"razorpay webhook secret is not configured")
	}
	if callback.WebhookSignature == "" {
		return models.NewExternalError(models.CodeSignatureMismatch,
			"failure notification carries no webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(callback.Payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(callback.WebhookSignature)) {
		return models.NewExternalError(models.CodeSignatureMismatch,
			"webhook signature does not match")
	}
	return nil
}
