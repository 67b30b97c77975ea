package models

import (
	"time"
)

// BookingGroupStatus represents the lifecycle state of a booking group
// Matches PostgreSQL ENUM: booking_group_status
type BookingGroupStatus string

const (
	BookingGroupPendingPayment BookingGroupStatus = "pending_payment"
	BookingGroupConfirmed      BookingGroupStatus = "confirmed"
	BookingGroupCancelled      BookingGroupStatus = "cancelled"
	BookingGroupRefunded       BookingGroupStatus = "refunded"
)

// BookingGroup is the atomic unit of purchase: a set of seats on one trip,
// bound to one boarding and one dropping stop point. Groups are never
// physically deleted; cancellation is a state.
type BookingGroup struct {
	ID               string             `json:"id" db:"id"`
	TripID           string             `json:"trip_id" db:"trip_id"`
	UserID           string             `json:"user_id" db:"user_id"`
	BookingReference string             `json:"booking_reference" db:"booking_reference"`
	BoardingPointID  string             `json:"boarding_point_id" db:"boarding_point_id"`
	DroppingPointID  string             `json:"dropping_point_id" db:"dropping_point_id"`
	Status           BookingGroupStatus `json:"status" db:"status"`
	Subtotal         float64            `json:"subtotal" db:"subtotal"`
	DiscountAmount   float64            `json:"discount_amount" db:"discount_amount"`
	TotalAmount      float64            `json:"total_amount" db:"total_amount"`
	CouponCode       *string            `json:"coupon_code,omitempty" db:"coupon_code"`
	HoldExpiresAt    time.Time          `json:"hold_expires_at" db:"hold_expires_at"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`

	Passengers []Passenger `json:"passengers,omitempty"`
}

// Passenger is one rider bound to exactly one seat within one booking group
type Passenger struct {
	ID             string    `json:"id" db:"id"`
	BookingGroupID string    `json:"booking_group_id" db:"booking_group_id"`
	SeatID         string    `json:"seat_id" db:"seat_id"`
	SeatNumber     string    `json:"seat_number" db:"seat_number"`
	Name           string    `json:"name" db:"name"`
	Age            int       `json:"age" db:"age"`
	Gender         string    `json:"gender" db:"gender"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// CanCancel reports whether cancellation is reachable from the current state
func (g *BookingGroup) CanCancel() bool {
	return g.Status == BookingGroupPendingPayment || g.Status == BookingGroupConfirmed
}

// IsTerminal reports whether the group is in a terminal state
func (g *BookingGroup) IsTerminal() bool {
	return g.Status == BookingGroupCancelled || g.Status == BookingGroupRefunded
}

// HoldExpired reports whether an unpaid hold has run out
func (g *BookingGroup) HoldExpired(now time.Time) bool {
	return g.Status == BookingGroupPendingPayment && now.After(g.HoldExpiresAt)
}

// CreateBookingGroupRequest is the booking creation payload
type CreateBookingGroupRequest struct {
	TripID          string                   `json:"trip_id" binding:"required"`
	FromStopID      string                   `json:"from_stop_id" binding:"required"`
	ToStopID        string                   `json:"to_stop_id" binding:"required"`
	BoardingPointID string                   `json:"boarding_point_id" binding:"required"`
	DroppingPointID string                   `json:"dropping_point_id" binding:"required"`
	SeatIDs         []string                 `json:"seat_ids" binding:"required,min=1"`
	Passengers      []CreatePassengerRequest `json:"passengers" binding:"required,min=1,dive"`
	CouponCode      *string                  `json:"coupon_code,omitempty"`
}

// CreatePassengerRequest carries one passenger's details
type CreatePassengerRequest struct {
	SeatID string  `json:"seat_id" binding:"required"`
	Name   string  `json:"name" binding:"required"`
	Age    int     `json:"age" binding:"required,gte=0"`
	Gender string  `json:"gender" binding:"required,oneof=male female other"`
	Phone  *string `json:"phone,omitempty"`
}
