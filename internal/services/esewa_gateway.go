package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/config"
	"github.com/sajhabus/booking-backend/internal/models"
)

const esewaFormURL = "https://rc-epay.esewa.com.np/api/epay/main/v2/form"

// EsewaGateway charges through eSewa's form-post flow. eSewa settles in NPR,
// the base currency, so no conversion is involved. There is no server-side
// order registration: our payment ID doubles as the transaction UUID and the
// signed form is handed to the client to post.
type EsewaGateway struct {
	productCode string
	secretKey   string
	successURL  string
	failureURL  string
	logger      *logrus.Logger
}

// NewEsewaGateway creates a new EsewaGateway
func NewEsewaGateway(cfg config.PaymentConfig, logger *logrus.Logger) *EsewaGateway {
	return &EsewaGateway{
		productCode: cfg.EsewaProductCode,
		secretKey:   cfg.EsewaSecretKey,
		successURL:  cfg.EsewaSuccessURL,
		failureURL:  cfg.EsewaFailureURL,
		logger:      logger,
	}
}

// Method identifies this gateway
func (g *EsewaGateway) Method() models.PaymentMethod {
	return models.PaymentMethodEsewa
}

// CreateIntent builds the signed eSewa form for the payment
func (g *EsewaGateway) CreateIntent(payment *models.Payment, group *models.BookingGroup) (*models.GatewayIntent, error) {
	if g.secretKey == "" {
		return nil, models.NewExternalError(models.CodeGatewayNotConfigured,
			"esewa credentials are not configured")
	}

	transactionUUID := payment.ID.String()
	totalAmount := formatEsewaAmount(payment.ChargedAmount)

	signature := g.sign(totalAmount, transactionUUID)
	payment.GatewayOrderID = &transactionUUID

	return &models.GatewayIntent{
		PaymentID: payment.ID,
		Method:    models.PaymentMethodEsewa,
		Amount:    payment.ChargedAmount,
		Currency:  payment.ChargedCurrency,
		OrderID:   transactionUUID,
		FormURL:   esewaFormURL,
		Fields: map[string]string{
			"amount":                  totalAmount,
			"tax_amount":              "0",
			"total_amount":            totalAmount,
			"transaction_uuid":        transactionUUID,
			"product_code":            g.productCode,
			"product_service_charge":  "0",
			"product_delivery_charge": "0",
			"success_url":             g.successURL,
			"failure_url":             g.failureURL,
			"signed_field_names":      "total_amount,transaction_uuid,product_code",
			"signature":               signature,
		},
	}, nil
}

// VerifyCallback recomputes the eSewa signature over the callback's amount
// and transaction UUID. The amount string is used exactly as sent; eSewa
// signs over it verbatim. Every callback must carry a valid signature,
// failure statuses included; eSewa signs the redirect payload regardless of
// outcome, and an unsigned notification is rejected without touching state.
// Abandoned checkouts that never come back are swept by hold expiry.
func (g *EsewaGateway) VerifyCallback(payment *models.Payment, callback *models.GatewayCallback) error {
	if g.secretKey == "" {
		return models.NewExternalError(models.CodeGatewayNotConfigured,
			"esewa credentials are not configured")
	}

	expected := g.sign(callback.Amount, callback.OrderID)
	if !hmac.Equal([]byte(expected), []byte(callback.Signature)) {
		return models.NewExternalError(models.CodeSignatureMismatch,
			"callback signature does not match")
	}
	return nil
}

// sign computes eSewa's base64 HMAC-SHA256 over the signed field string
func (g *EsewaGateway) sign(totalAmount, transactionUUID string) string {
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, g.productCode)

	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// formatEsewaAmount renders an amount without a trailing ".00" for whole
// rupees, matching how eSewa echoes amounts back in callbacks
func formatEsewaAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return strconv.FormatInt(int64(amount), 10)
	}
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
