package services

import (
	"fmt"
	"math"
	"time"

	"github.com/sajhabus/booking-backend/internal/database"
	"github.com/sajhabus/booking-backend/internal/models"
)

// CouponService validates coupons and computes discounts. It never mutates
// the usage counter itself: the returned decision is committed by the
// booking transaction, so concurrent requests cannot overrun a coupon's
// usage limit.
type CouponService struct {
	couponRepo *database.CouponRepository
}

// NewCouponService creates a new CouponService
func NewCouponService(couponRepo *database.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo}
}

// Apply validates the coupon against the trip and subtotal and returns the
// discount decision
func (s *CouponService) Apply(code, tripID, busID string, subtotal float64) (*models.CouponDecision, error) {
	coupon, err := s.couponRepo.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up coupon: %w", err)
	}
	if coupon == nil || !coupon.Active {
		return nil, models.NewNotFoundError(models.CodeCouponNotFound,
			fmt.Sprintf("coupon %s does not exist", code))
	}
	if coupon.IsExpired(time.Now()) {
		return nil, models.NewValidationError(models.CodeCouponExpired,
			fmt.Sprintf("coupon %s is outside its validity window", code))
	}
	if coupon.TripID != nil && *coupon.TripID != tripID {
		return nil, models.NewValidationError(models.CodeCouponNotApplicable,
			fmt.Sprintf("coupon %s is not valid for this trip", code))
	}
	if coupon.BusID != nil && *coupon.BusID != busID {
		return nil, models.NewValidationError(models.CodeCouponNotApplicable,
			fmt.Sprintf("coupon %s is not valid for this bus", code))
	}
	if !coupon.HasUsesLeft() {
		return nil, models.NewValidationError(models.CodeCouponNotApplicable,
			fmt.Sprintf("coupon %s has reached its usage limit", code))
	}
	if subtotal < coupon.MinAmount {
		return nil, models.NewValidationError(models.CodeCouponMinAmount,
			fmt.Sprintf("coupon %s requires a minimum amount of %.2f", code, coupon.MinAmount))
	}

	discount := s.discountFor(coupon, subtotal)
	return &models.CouponDecision{
		Coupon:      coupon,
		Code:        coupon.Code,
		Discount:    discount,
		FinalAmount: subtotal - discount,
	}, nil
}

// discountFor computes the discount amount. Percentage discounts are floored
// to the currency's minor unit so the system never gives away fractions of a
// paisa.
func (s *CouponService) discountFor(coupon *models.Coupon, subtotal float64) float64 {
	var discount float64
	switch coupon.DiscountType {
	case models.CouponDiscountPercentage:
		discount = math.Floor(subtotal*coupon.DiscountValue) / 100
	default:
		discount = coupon.DiscountValue
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}
