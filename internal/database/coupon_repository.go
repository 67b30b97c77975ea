package database

import (
	"database/sql"

	"github.com/sajhabus/booking-backend/internal/models"
)

// CouponRepository reads coupons. The usage counter is only ever written
// inside the booking transaction (see BookingRepository), never here.
type CouponRepository struct {
	db DB
}

// NewCouponRepository creates a new CouponRepository
func NewCouponRepository(db DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// GetByCode retrieves a coupon by its code, nil when not found
func (r *CouponRepository) GetByCode(code string) (*models.Coupon, error) {
	query := `
		SELECT id, code, discount_type, discount_value, min_amount,
		       trip_id, bus_id, valid_from, valid_until,
		       usage_limit, usage_count, active, created_at, updated_at
		FROM coupons
		WHERE code = $1
	`

	var coupon models.Coupon
	err := r.db.Get(&coupon, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
