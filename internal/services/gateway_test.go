package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sajhabus/booking-backend/internal/config"
	"github.com/sajhabus/booking-backend/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func razorpayTestConfig() config.PaymentConfig {
	return config.PaymentConfig{
		BaseCurrency:      "NPR",
		ExchangeRateINR:   0.625,
		RazorpayKeyID:     "rzp_test_key",
		RazorpayKeySecret: "rzp_test_secret",

		RazorpayWebhookSecret: "rzp_webhook_secret",
	}
}

func esewaTestConfig() config.PaymentConfig {
	return config.PaymentConfig{
		BaseCurrency:     "NPR",
		EsewaProductCode: "EPAYTEST",
		EsewaSecretKey:   "8gBm/:&EnhH.1/q",
		EsewaSuccessURL:  "https://example.com/success",
		EsewaFailureURL:  "https://example.com/failure",
	}
}

func TestRazorpayVerifyCallback(t *testing.T) {
	g := NewRazorpayGateway(razorpayTestConfig(), testLogger())

	mac := hmac.New(sha256.New, []byte("rzp_test_secret"))
	mac.Write([]byte("order_123|pay_456"))
	signature := hex.EncodeToString(mac.Sum(nil))

	err := g.VerifyCallback(&models.Payment{}, &models.GatewayCallback{
		OrderID:    "order_123",
		GatewayRef: "pay_456",
		Signature:  signature,
		Success:    true,
	})
	assert.NoError(t, err)
}

func TestRazorpayVerifyCallback_Mismatch(t *testing.T) {
	g := NewRazorpayGateway(razorpayTestConfig(), testLogger())

	err := g.VerifyCallback(&models.Payment{}, &models.GatewayCallback{
		OrderID:    "order_123",
		GatewayRef: "pay_456",
		Signature:  "deadbeef",
		Success:    true,
	})
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeSignatureMismatch, de.Code)
	assert.Equal(t, models.ErrExternal, de.Kind)
}

func TestRazorpayVerifyCallback_UnsignedFailureRejected(t *testing.T) {
	g := NewRazorpayGateway(razorpayTestConfig(), testLogger())

	// A failure notification without the webhook HMAC is not Razorpay's
	err := g.VerifyCallback(&models.Payment{}, &models.GatewayCallback{
		OrderID: "order_123",
		Payload: []byte(`{"razorpay_order_id":"order_123","status":"failed"}`),
		Success: false,
	})
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeSignatureMismatch, de.Code)
}

func TestRazorpayVerifyCallback_SignedWebhookFailure(t *testing.T) {
	g := NewRazorpayGateway(razorpayTestConfig(), testLogger())

	payload := []byte(`{"razorpay_order_id":"order_123","status":"failed"}`)
	mac := hmac.New(sha256.New, []byte("rzp_webhook_secret"))
	mac.Write(payload)

	err := g.VerifyCallback(&models.Payment{}, &models.GatewayCallback{
		OrderID:          "order_123",
		Payload:          payload,
		WebhookSignature: hex.EncodeToString(mac.Sum(nil)),
		Success:          false,
	})
	assert.NoError(t, err)
}

func TestRazorpayVerifyCallback_TamperedWebhookPayload(t *testing.T) {
	g := NewRazorpayGateway(razorpayTestConfig(), testLogger())

	mac := hmac.New(sha256.New, []byte("rzp_webhook_secret"))
	mac.Write([]byte(`{"razorpay_order_id":"order_999","status":"failed"}`))

	err := g.VerifyCallback(&models.Payment{}, &models.GatewayCallback{
		OrderID:          "order_123",
		Payload:          []byte(`{"razorpay_order_id":"order_123","status":"failed"}`),
		WebhookSignature: hex.EncodeToString(mac.Sum(nil)),
		Success:          false,
	})
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeSignatureMismatch, de.Code)
}

func TestRazorpayCreateIntent(t *testing.T) {
	var captured struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "order_abc", "status": "created",
		})
	}))
	defer server.Close()

	g := NewRazorpayGateway(razorpayTestConfig(), testLogger())
	g.baseURL = server.URL

	payment := &models.Payment{
		ID:              uuid.New(),
		ChargedAmount:   562.5,
		ChargedCurrency: "INR",
	}
	group := &models.BookingGroup{ID: "group-1", BookingReference: "BK-AB12CD34"}

	intent, err := g.CreateIntent(payment, group)
	require.NoError(t, err)
	assert.Equal(t, "order_abc", intent.OrderID)
	assert.Equal(t, "rzp_test_key", intent.KeyID)
	require.NotNil(t, payment.GatewayOrderID)
	assert.Equal(t, "order_abc", *payment.GatewayOrderID)

	// 562.50 INR is 56250 paise
	assert.Equal(t, int64(56250), captured.Amount)
	assert.Equal(t, "INR", captured.Currency)
	assert.Equal(t, "BK-AB12CD34", captured.Receipt)
}

func TestRazorpayCreateIntent_NotConfigured(t *testing.T) {
	g := NewRazorpayGateway(config.PaymentConfig{}, testLogger())

	_, err := g.CreateIntent(&models.Payment{ID: uuid.New()}, &models.BookingGroup{})
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeGatewayNotConfigured, de.Code)
}

func TestEsewaCreateIntent(t *testing.T) {
	g := NewEsewaGateway(esewaTestConfig(), testLogger())

	payment := &models.Payment{
		ID:              uuid.New(),
		ChargedAmount:   900,
		ChargedCurrency: "NPR",
	}
	intent, err := g.CreateIntent(payment, &models.BookingGroup{ID: "group-1"})
	require.NoError(t, err)

	assert.Equal(t, payment.ID.String(), intent.OrderID)
	require.NotNil(t, payment.GatewayOrderID)
	assert.Equal(t, payment.ID.String(), *payment.GatewayOrderID)

	assert.Equal(t, "900", intent.Fields["total_amount"])
	assert.Equal(t, "EPAYTEST", intent.Fields["product_code"])
	assert.Equal(t, "total_amount,transaction_uuid,product_code", intent.Fields["signed_field_names"])

	// The form signature must verify against the same secret
	message := "total_amount=900,transaction_uuid=" + payment.ID.String() + ",product_code=EPAYTEST"
	mac := hmac.New(sha256.New, []byte("8gBm/:&EnhH.1/q"))
	mac.Write([]byte(message))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, intent.Fields["signature"])
}

func TestEsewaVerifyCallback_RoundTrip(t *testing.T) {
	g := NewEsewaGateway(esewaTestConfig(), testLogger())

	payment := &models.Payment{ID: uuid.New(), ChargedAmount: 562.5}
	intent, err := g.CreateIntent(payment, &models.BookingGroup{ID: "group-1"})
	require.NoError(t, err)

	err = g.VerifyCallback(payment, &models.GatewayCallback{
		OrderID:   intent.OrderID,
		Amount:    intent.Fields["total_amount"],
		Signature: intent.Fields["signature"],
		Success:   true,
	})
	assert.NoError(t, err)
}

func TestEsewaVerifyCallback_TamperedAmount(t *testing.T) {
	g := NewEsewaGateway(esewaTestConfig(), testLogger())

	payment := &models.Payment{ID: uuid.New(), ChargedAmount: 900}
	intent, err := g.CreateIntent(payment, &models.BookingGroup{ID: "group-1"})
	require.NoError(t, err)

	err = g.VerifyCallback(payment, &models.GatewayCallback{
		OrderID:   intent.OrderID,
		Amount:    "1",
		Signature: intent.Fields["signature"],
		Success:   true,
	})
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeSignatureMismatch, de.Code)
}

func TestEsewaVerifyCallback_UnsignedFailureRejected(t *testing.T) {
	g := NewEsewaGateway(esewaTestConfig(), testLogger())

	err := g.VerifyCallback(&models.Payment{ID: uuid.New()}, &models.GatewayCallback{
		OrderID: "txn-uuid",
		Amount:  "900",
		Success: false,
	})
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeSignatureMismatch, de.Code)
}

func TestEsewaVerifyCallback_SignedFailureAccepted(t *testing.T) {
	g := NewEsewaGateway(esewaTestConfig(), testLogger())

	// eSewa signs the redirect payload for non-COMPLETE statuses too
	message := "total_amount=900,transaction_uuid=txn-uuid,product_code=EPAYTEST"
	mac := hmac.New(sha256.New, []byte("8gBm/:&EnhH.1/q"))
	mac.Write([]byte(message))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	err := g.VerifyCallback(&models.Payment{ID: uuid.New()}, &models.GatewayCallback{
		OrderID:   "txn-uuid",
		Amount:    "900",
		Signature: signature,
		Success:   false,
	})
	assert.NoError(t, err)
}

func TestFormatEsewaAmount(t *testing.T) {
	assert.Equal(t, "900", formatEsewaAmount(900))
	assert.Equal(t, "562.50", formatEsewaAmount(562.5))
	assert.Equal(t, "0", formatEsewaAmount(0))
}
