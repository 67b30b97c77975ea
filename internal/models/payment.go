package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod selects the gateway a payment runs through
type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodEsewa    PaymentMethod = "esewa"
)

// PaymentStatus represents the payment lifecycle state.
// Transitions: initiated -> success | failed, success -> refunded.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment records one payment attempt for a booking group. The unique
// constraint on booking_group_id enforces at most one payment per group; a
// failed payment is re-initiated in place rather than duplicated.
//
// BaseAmount/BaseCurrency are the group total in the domestic currency.
// ChargedAmount/ChargedCurrency are what the gateway settles, converted with
// ExchangeRate when the gateway settles in a foreign currency. The rate is
// persisted so historical charges stay reproducible after rate changes.
type Payment struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	BookingGroupID  string        `json:"booking_group_id" db:"booking_group_id"`
	UserID          string        `json:"user_id" db:"user_id"`
	Method          PaymentMethod `json:"method" db:"method"`
	Status          PaymentStatus `json:"status" db:"status"`
	BaseAmount      float64       `json:"base_amount" db:"base_amount"`
	BaseCurrency    string        `json:"base_currency" db:"base_currency"`
	ChargedAmount   float64       `json:"charged_amount" db:"charged_amount"`
	ChargedCurrency string        `json:"charged_currency" db:"charged_currency"`
	ExchangeRate    *float64      `json:"exchange_rate,omitempty" db:"exchange_rate"`

	// Gateway audit trail
	GatewayOrderID   *string `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayPaymentID *string `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	GatewaySignature *string `json:"gateway_signature,omitempty" db:"gateway_signature"`

	InitiatedAt time.Time  `json:"initiated_at" db:"initiated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the payment can no longer transition from a
// gateway callback
func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentStatusInitiated
}

// InitiatePaymentRequest is the payment initiation payload
type InitiatePaymentRequest struct {
	BookingGroupID string        `json:"booking_group_id" binding:"required"`
	Method         PaymentMethod `json:"method" binding:"required,oneof=razorpay esewa"`
}

// GatewayIntent is the gateway-specific redirect/intent data returned to the
// client after initiation
type GatewayIntent struct {
	PaymentID uuid.UUID     `json:"payment_id"`
	Method    PaymentMethod `json:"method"`
	Amount    float64       `json:"amount"`
	Currency  string        `json:"currency"`

	// Razorpay checkout
	OrderID string `json:"order_id,omitempty"`
	KeyID   string `json:"key_id,omitempty"`

	// eSewa form post
	FormURL string            `json:"form_url,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// GatewayCallback is the normalized shape both gateway callbacks are parsed
// into. Nothing in it is trusted until the gateway adapter has verified
// Signature against its shared secret.
type GatewayCallback struct {
	// OrderID is the gateway-side order identifier for Razorpay and our
	// transaction UUID for eSewa.
	OrderID string
	// GatewayRef is the gateway's payment/transaction reference.
	GatewayRef string
	// Amount is the amount string exactly as the gateway sent it; eSewa signs
	// over it verbatim.
	Amount    string
	Signature string
	// Payload is the raw callback body for webhook-delivered notifications;
	// WebhookSignature is the transport-level HMAC the gateway computed over
	// those bytes.
	Payload          []byte
	WebhookSignature string
	// Success is the gateway-reported outcome, applied only after signature
	// verification.
	Success bool
}
