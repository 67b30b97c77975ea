package models

import (
	"time"
)

// CouponDiscountType selects how a coupon's value is applied
type CouponDiscountType string

const (
	CouponDiscountFixed      CouponDiscountType = "fixed"
	CouponDiscountPercentage CouponDiscountType = "percentage"
)

// Coupon is an admin-managed discount. A nil TripID/BusID means the coupon
// is not scoped to that dimension. UsageLimit 0 means unlimited.
type Coupon struct {
	ID            string             `json:"id" db:"id"`
	Code          string             `json:"code" db:"code"`
	DiscountType  CouponDiscountType `json:"discount_type" db:"discount_type"`
	DiscountValue float64            `json:"discount_value" db:"discount_value"`
	MinAmount     float64            `json:"min_amount" db:"min_amount"`
	TripID        *string            `json:"trip_id,omitempty" db:"trip_id"`
	BusID         *string            `json:"bus_id,omitempty" db:"bus_id"`
	ValidFrom     time.Time          `json:"valid_from" db:"valid_from"`
	ValidUntil    time.Time          `json:"valid_until" db:"valid_until"`
	UsageLimit    int                `json:"usage_limit" db:"usage_limit"`
	UsageCount    int                `json:"usage_count" db:"usage_count"`
	Active        bool               `json:"active" db:"active"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether now falls outside the coupon's validity window
func (c *Coupon) IsExpired(now time.Time) bool {
	return now.Before(c.ValidFrom) || now.After(c.ValidUntil)
}

// HasUsesLeft reports whether the usage ceiling has not been reached. The
// authoritative check is the conditional UPDATE in the booking transaction;
// this is the fast pre-check.
func (c *Coupon) HasUsesLeft() bool {
	return c.UsageLimit == 0 || c.UsageCount < c.UsageLimit
}

// CouponDecision is the outcome of validating a coupon against a subtotal
type CouponDecision struct {
	Coupon      *Coupon `json:"-"`
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"final_amount"`
}
