package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/middleware"
	"github.com/sajhabus/booking-backend/internal/models"
	"github.com/sajhabus/booking-backend/internal/services"
)

// PaymentHandler handles HTTP requests for payments and gateway callbacks
type PaymentHandler struct {
	service *services.PaymentService
	logger  *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

// InitiatePayment handles POST /api/v1/payments/initiate
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    models.CodeInvalidRequest,
			"message": "Invalid request format",
			"error":   err.Error(),
		})
		return
	}

	intent, err := h.service.Initiate(user.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"intent": intent,
	})
}

// razorpayCallbackRequest is Razorpay's checkout callback payload. A failed
// charge carries no checkout signature; it arrives via the webhook channel
// with status "failed" and the X-Razorpay-Signature header instead.
type razorpayCallbackRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	Status            string `json:"status"`
}

// RazorpayCallback handles POST /api/v1/payments/razorpay/callback. The raw
// body is kept alongside the parsed fields because webhook notifications are
// authenticated over the exact bytes Razorpay signed.
func (h *PaymentHandler) RazorpayCallback(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    models.CodeInvalidRequest,
			"message": "Invalid callback body",
		})
		return
	}

	var req razorpayCallbackRequest
	if err := json.Unmarshal(rawBody, &req); err != nil || req.RazorpayOrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    models.CodeInvalidRequest,
			"message": "Invalid callback format",
		})
		return
	}

	callback := &models.GatewayCallback{
		OrderID:          req.RazorpayOrderID,
		GatewayRef:       req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
		Payload:          rawBody,
		WebhookSignature: c.GetHeader("X-Razorpay-Signature"),
		Success:          req.Status != "failed" && req.RazorpaySignature != "",
	}

	if err := h.service.HandleCallback(models.PaymentMethodRazorpay, callback); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// esewaCallbackBody is the JSON eSewa encodes into the base64 `data`
// parameter of its redirect
type esewaCallbackBody struct {
	TransactionCode string `json:"transaction_code"`
	Status          string `json:"status"`
	TotalAmount     string `json:"total_amount"`
	TransactionUUID string `json:"transaction_uuid"`
	ProductCode     string `json:"product_code"`
	Signature       string `json:"signature"`
}

// EsewaCallback handles POST /api/v1/payments/esewa/callback
func (h *PaymentHandler) EsewaCallback(c *gin.Context) {
	encoded := c.Query("data")
	if encoded == "" {
		encoded = c.PostForm("data")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    models.CodeInvalidRequest,
			"message": "Invalid callback encoding",
		})
		return
	}

	var body esewaCallbackBody
	if err := json.Unmarshal(decoded, &body); err != nil || body.TransactionUUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    models.CodeInvalidRequest,
			"message": "Invalid callback format",
		})
		return
	}

	callback := &models.GatewayCallback{
		OrderID:    body.TransactionUUID,
		GatewayRef: body.TransactionCode,
		Amount:     body.TotalAmount,
		Signature:  body.Signature,
		Success:    body.Status == "COMPLETE",
	}

	if err := h.service.HandleCallback(models.PaymentMethodEsewa, callback); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// RefundPayment handles POST /api/v1/payments/:bookingGroupId/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	if err := h.service.Refund(user.UserID, c.Param("bookingGroupId")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
