package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sajhabus/booking-backend/internal/models"
)

// PaymentRepository owns the payments table. The unique constraint on
// booking_group_id keeps payments one-to-one with booking groups, and every
// transition is a guarded conditional UPDATE so replayed gateway callbacks
// cannot double-apply.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts the single payment row for a booking group
func (r *PaymentRepository) Create(payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, booking_group_id, user_id, method, status,
			base_amount, base_currency, charged_amount, charged_currency,
			exchange_rate, gateway_order_id, initiated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING initiated_at, created_at, updated_at
	`

	err := r.db.QueryRowx(query,
		payment.ID, payment.BookingGroupID, payment.UserID, payment.Method, payment.Status,
		payment.BaseAmount, payment.BaseCurrency, payment.ChargedAmount, payment.ChargedCurrency,
		payment.ExchangeRate, payment.GatewayOrderID,
	).Scan(&payment.InitiatedAt, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return models.NewConflictError(models.CodeAlreadyPaid,
				"a payment already exists for this booking group")
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// Reinitiate resets a failed payment for a retry through a possibly
// different gateway, keeping the one-row-per-group invariant
func (r *PaymentRepository) Reinitiate(payment *models.Payment) error {
	query := `
		UPDATE payments
		SET method = $2, status = 'initiated',
		    base_amount = $3, base_currency = $4,
		    charged_amount = $5, charged_currency = $6, exchange_rate = $7,
		    gateway_order_id = $8, gateway_payment_id = NULL, gateway_signature = NULL,
		    initiated_at = NOW(), completed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'failed'
	`

	result, err := r.db.Exec(query,
		payment.ID, payment.Method,
		payment.BaseAmount, payment.BaseCurrency,
		payment.ChargedAmount, payment.ChargedCurrency, payment.ExchangeRate,
		payment.GatewayOrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to reinitiate payment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			"payment is not in failed state")
	}
	payment.Status = models.PaymentStatusInitiated
	return nil
}

// GetByID retrieves a payment by ID, nil when not found
func (r *PaymentRepository) GetByID(paymentID uuid.UUID) (*models.Payment, error) {
	return r.getOne(`WHERE id = $1`, paymentID)
}

// GetByBookingGroupID retrieves the payment of a booking group, nil when the
// group has none
func (r *PaymentRepository) GetByBookingGroupID(groupID string) (*models.Payment, error) {
	return r.getOne(`WHERE booking_group_id = $1`, groupID)
}

// GetByGatewayOrderID retrieves a payment by the gateway's order identifier
func (r *PaymentRepository) GetByGatewayOrderID(orderID string) (*models.Payment, error) {
	return r.getOne(`WHERE gateway_order_id = $1`, orderID)
}

func (r *PaymentRepository) getOne(where string, arg interface{}) (*models.Payment, error) {
	query := `
		SELECT id, booking_group_id, user_id, method, status,
		       base_amount, base_currency, charged_amount, charged_currency,
		       exchange_rate, gateway_order_id, gateway_payment_id, gateway_signature,
		       initiated_at, completed_at, refunded_at, created_at, updated_at
		FROM payments
	` + where

	var payment models.Payment
	err := r.db.Get(&payment, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ConfirmPaymentAndBooking applies the verified success callback: payment
// initiated -> success and booking group pending_payment -> confirmed, in
// one transaction. Either both rows transition or neither does.
func (r *PaymentRepository) ConfirmPaymentAndBooking(
	paymentID uuid.UUID,
	groupID string,
	gatewayPaymentID, signature string,
) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE payments
		SET status = 'success', gateway_payment_id = $2, gateway_signature = $3,
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'`,
		paymentID, gatewayPaymentID, signature,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment success: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			"payment is not in initiated state")
	}

	result, err = tx.Exec(`
		UPDATE booking_groups
		SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending_payment'`,
		groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm booking group: %w", err)
	}
	rows, _ = result.RowsAffected()
	if rows == 0 {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			"booking group is not in pending_payment state")
	}

	return tx.Commit()
}

// MarkFailed applies a verified failure callback; the booking group stays in
// pending_payment and remains eligible for retry or expiry
func (r *PaymentRepository) MarkFailed(paymentID uuid.UUID, gatewayPaymentID string) error {
	result, err := r.db.Exec(`
		UPDATE payments
		SET status = 'failed', gateway_payment_id = NULLIF($2, ''),
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'`,
		paymentID, gatewayPaymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			"payment is not in initiated state")
	}
	return nil
}

// RefundPaymentAndBooking transitions payment success -> refunded together
// with booking group confirmed -> refunded and releases the group's seats.
// The three writes commit or roll back as one unit.
func (r *PaymentRepository) RefundPaymentAndBooking(paymentID uuid.UUID, groupID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE payments
		SET status = 'refunded', refunded_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'success'`,
		paymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to refund payment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			"payment is not in success state")
	}

	result, err = tx.Exec(`
		UPDATE booking_groups
		SET status = 'refunded', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'`,
		groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to refund booking group: %w", err)
	}
	rows, _ = result.RowsAffected()
	if rows == 0 {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			"booking group is not in confirmed state")
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
