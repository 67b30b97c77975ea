package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sajhabus/booking-backend/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations; the partial unique index on active seat_reservations raises it
// for the loser of a concurrent claim.
const uniqueViolation = "23505"

// BookingRepository owns booking_groups, passengers and seat_reservations.
// The claim of every requested (trip, seat) pair and the creation of the
// group with its passengers and the coupon usage increment happen in a single
// transaction: either everything commits or nothing does.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GenerateBookingReference returns a human-readable booking reference
func (r *BookingRepository) GenerateBookingReference() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate booking reference: %w", err)
	}
	return "BK-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// CreateBookingGroup atomically claims the seats and persists the group, its
// passengers and the coupon usage increment. When any requested seat is held
// by another active group the whole transaction rolls back and the returned
// error names the conflicting seat numbers.
func (r *BookingRepository) CreateBookingGroup(
	group *models.BookingGroup,
	passengers []models.Passenger,
	coupon *models.Coupon,
) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Insert the group first so reservations can reference it
	groupQuery := `
		INSERT INTO booking_groups (
			id, trip_id, user_id, booking_reference,
			boarding_point_id, dropping_point_id, status,
			subtotal, discount_amount, total_amount, coupon_code,
			hold_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowx(groupQuery,
		group.ID, group.TripID, group.UserID, group.BookingReference,
		group.BoardingPointID, group.DroppingPointID, group.Status,
		group.Subtotal, group.DiscountAmount, group.TotalAmount, group.CouponCode,
		group.HoldExpiresAt,
	).Scan(&group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking group: %w", err)
	}

	// 2. Release stale holds on the contested seats so an expired unpaid
	// group cannot block the claim before the sweep has run
	seatIDs := make([]string, len(passengers))
	for i, p := range passengers {
		seatIDs[i] = p.SeatID
	}

	_, err = tx.Exec(`
		UPDATE seat_reservations sr
		SET released = true
		FROM booking_groups bg
		WHERE bg.id = sr.booking_group_id
		  AND sr.trip_id = $1
		  AND sr.seat_id = ANY($2)
		  AND NOT sr.released
		  AND bg.status = 'pending_payment'
		  AND bg.hold_expires_at < NOW()`,
		group.TripID, pq.Array(seatIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to release stale holds: %w", err)
	}

	// 3. Claim every seat. The partial unique index on (trip_id, seat_id)
	// WHERE NOT released makes exactly one concurrent claimant win.
	claimQuery := `
		INSERT INTO seat_reservations (id, booking_group_id, trip_id, seat_id)
		VALUES ($1, $2, $3, $4)
	`
	for _, seatID := range seatIDs {
		if _, err := tx.Exec(claimQuery, uuid.New().String(), group.ID, group.TripID, seatID); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
				return r.seatUnavailableError(group.TripID, seatIDs)
			}
			return fmt.Errorf("failed to claim seat %s: %w", seatID, err)
		}
	}

	// 4. Insert passengers, one per claimed seat
	passengerQuery := `
		INSERT INTO passengers (
			id, booking_group_id, seat_id, seat_number,
			name, age, gender, phone
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	for i := range passengers {
		passengers[i].BookingGroupID = group.ID
		err = tx.QueryRowx(passengerQuery,
			passengers[i].ID, group.ID, passengers[i].SeatID, passengers[i].SeatNumber,
			passengers[i].Name, passengers[i].Age, passengers[i].Gender, passengers[i].Phone,
		).Scan(&passengers[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create passenger for seat %s: %w", passengers[i].SeatNumber, err)
		}
	}

	// 5. Commit the coupon usage in the same transaction so the ceiling
	// holds under concurrent, independently-validated requests
	if coupon != nil {
		result, err := tx.Exec(`
			UPDATE coupons
			SET usage_count = usage_count + 1, updated_at = NOW()
			WHERE id = $1
			  AND active
			  AND (usage_limit = 0 OR usage_count < usage_limit)`,
			coupon.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to increment coupon usage: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return models.NewConflictError(models.CodeCouponNotApplicable,
				"coupon usage limit has been reached")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	group.Passengers = passengers
	return nil
}

// seatUnavailableError names the requested seats currently held by another
// active group
func (r *BookingRepository) seatUnavailableError(tripID string, seatIDs []string) error {
	query := `
		SELECT s.seat_number
		FROM seat_reservations sr
		JOIN seats s ON s.id = sr.seat_id
		JOIN booking_groups bg ON bg.id = sr.booking_group_id
		WHERE sr.trip_id = $1
		  AND sr.seat_id = ANY($2)
		  AND NOT sr.released
		  AND (bg.status = 'confirmed'
		       OR (bg.status = 'pending_payment' AND bg.hold_expires_at > NOW()))
		ORDER BY s.seat_number
	`

	numbers := []string{}
	if err := r.db.Select(&numbers, query, tripID, pq.Array(seatIDs)); err != nil {
		return models.NewSeatUnavailableError(nil)
	}
	return models.NewSeatUnavailableError(numbers)
}

// GetByID retrieves a booking group with its passengers, nil when not found
func (r *BookingRepository) GetByID(groupID string) (*models.BookingGroup, error) {
	query := `
		SELECT id, trip_id, user_id, booking_reference,
		       boarding_point_id, dropping_point_id, status,
		       subtotal, discount_amount, total_amount, coupon_code,
		       hold_expires_at, cancelled_at, created_at, updated_at
		FROM booking_groups
		WHERE id = $1
	`

	var group models.BookingGroup
	err := r.db.Get(&group, query, groupID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	passengers, err := r.GetPassengers(groupID)
	if err != nil {
		return nil, err
	}
	group.Passengers = passengers
	return &group, nil
}

// GetPassengers returns the passengers of a booking group
func (r *BookingRepository) GetPassengers(groupID string) ([]models.Passenger, error) {
	query := `
		SELECT id, booking_group_id, seat_id, seat_number,
		       name, age, gender, phone, created_at
		FROM passengers
		WHERE booking_group_id = $1
		ORDER BY seat_number
	`

	passengers := []models.Passenger{}
	if err := r.db.Select(&passengers, query, groupID); err != nil {
		return nil, err
	}
	return passengers, nil
}

// CancelGroup transitions a group to cancelled from the given state and
// releases its seat reservations, atomically
func (r *BookingRepository) CancelGroup(groupID string, from models.BookingGroupStatus) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE booking_groups
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		groupID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking group: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			fmt.Sprintf("booking group is no longer in %s state", from))
	}

	if _, err := tx.Exec(`
		UPDATE seat_reservations SET released = true
		WHERE booking_group_id = $1 AND NOT released`,
		groupID,
	); err != nil {
		return fmt.Errorf("failed to release seat reservations: %w", err)
	}

	return tx.Commit()
}

// ReleaseExpiredHolds cancels every pending-payment group whose hold deadline
// has passed and releases its seats. Returns the number of groups expired.
func (r *BookingRepository) ReleaseExpiredHolds() (int64, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE booking_groups
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE status = 'pending_payment' AND hold_expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to expire booking groups: %w", err)
	}
	expired, _ := result.RowsAffected()

	if _, err := tx.Exec(`
		UPDATE seat_reservations sr
		SET released = true
		FROM booking_groups bg
		WHERE bg.id = sr.booking_group_id
		  AND NOT sr.released
		  AND bg.status = 'cancelled'`); err != nil {
		return 0, fmt.Errorf("failed to release expired reservations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return expired, nil
}
