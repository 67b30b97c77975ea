package models

import (
	"errors"
	"strings"
)

// ErrorKind is the coarse error category used to pick the HTTP status
type ErrorKind string

const (
	ErrValidation     ErrorKind = "VALIDATION"
	ErrNotFound       ErrorKind = "NOT_FOUND"
	ErrConflict       ErrorKind = "CONFLICT"
	ErrStateViolation ErrorKind = "STATE_VIOLATION"
	ErrExternal       ErrorKind = "EXTERNAL"
)

// Machine-readable error codes returned to clients
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidSegment       = "INVALID_SEGMENT"
	CodeSeatUnavailable      = "SEAT_UNAVAILABLE"
	CodeSeatNotFound         = "SEAT_NOT_FOUND"
	CodeTripNotFound         = "TRIP_NOT_FOUND"
	CodeTripNotOperational   = "TRIP_NOT_OPERATIONAL"
	CodeStopPointNotFound    = "STOP_POINT_NOT_FOUND"
	CodeBookingNotFound      = "BOOKING_NOT_FOUND"
	CodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	CodeCouponNotFound       = "COUPON_NOT_FOUND"
	CodeCouponExpired        = "COUPON_EXPIRED"
	CodeCouponNotApplicable  = "COUPON_NOT_APPLICABLE"
	CodeCouponMinAmount      = "MIN_AMOUNT_NOT_MET"
	CodeAlreadyPaid          = "ALREADY_PAID"
	CodeHoldExpired          = "HOLD_EXPIRED"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeSignatureMismatch    = "SIGNATURE_MISMATCH"
	CodeGatewayError         = "GATEWAY_ERROR"
	CodeGatewayNotConfigured = "GATEWAY_NOT_CONFIGURED"
	CodeForbidden            = "FORBIDDEN"
)

// DomainError is the error type every business rule failure is expressed as.
// Kind picks the HTTP status, Code is machine-readable, Message is for
// humans. Seats is populated only for SEAT_UNAVAILABLE and names the
// conflicting seat numbers.
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Seats   []string  `json:"seats,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if len(e.Seats) > 0 {
		return e.Message + ": " + strings.Join(e.Seats, ", ")
	}
	return e.Message
}

// NewValidationError creates a VALIDATION error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: ErrValidation, Code: code, Message: message}
}

// NewNotFoundError creates a NOT_FOUND error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: ErrNotFound, Code: code, Message: message}
}

// NewConflictError creates a CONFLICT error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: ErrConflict, Code: code, Message: message}
}

// NewStateViolationError creates a STATE_VIOLATION error
func NewStateViolationError(code, message string) *DomainError {
	return &DomainError{Kind: ErrStateViolation, Code: code, Message: message}
}

// NewExternalError creates an EXTERNAL error
func NewExternalError(code, message string) *DomainError {
	return &DomainError{Kind: ErrExternal, Code: code, Message: message}
}

// NewSeatUnavailableError creates the seat conflict error naming the
// contested seat numbers
func NewSeatUnavailableError(seatNumbers []string) *DomainError {
	return &DomainError{
		Kind:    ErrConflict,
		Code:    CodeSeatUnavailable,
		Message: "one or more requested seats are no longer available",
		Seats:   seatNumbers,
	}
}

// AsDomainError unwraps err into a DomainError if one is in its chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
