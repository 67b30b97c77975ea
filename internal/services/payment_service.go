package services

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/config"
	"github.com/sajhabus/booking-backend/internal/database"
	"github.com/sajhabus/booking-backend/internal/metrics"
	"github.com/sajhabus/booking-backend/internal/models"
)

// PaymentGateway is the adapter contract both gateways implement. CreateIntent
// registers the charge with the gateway and fills in the payment's gateway
// order ID; VerifyCallback authenticates a callback against the gateway's
// shared secret before anything in it is trusted.
type PaymentGateway interface {
	Method() models.PaymentMethod
	CreateIntent(payment *models.Payment, group *models.BookingGroup) (*models.GatewayIntent, error)
	VerifyCallback(payment *models.Payment, callback *models.GatewayCallback) error
}

// PaymentService orchestrates the payment lifecycle: initiation, verified
// gateway callbacks and refunds. State transitions are delegated to guarded
// conditional updates in PaymentRepository, which makes callback replays
// harmless.
type PaymentService struct {
	paymentRepo *database.PaymentRepository
	bookingRepo *database.BookingRepository
	gateways    map[models.PaymentMethod]PaymentGateway
	config      config.PaymentConfig
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo *database.PaymentRepository,
	bookingRepo *database.BookingRepository,
	gateways []PaymentGateway,
	cfg config.PaymentConfig,
	logger *logrus.Logger,
) *PaymentService {
	byMethod := make(map[models.PaymentMethod]PaymentGateway, len(gateways))
	for _, g := range gateways {
		byMethod[g.Method()] = g
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		gateways:    byMethod,
		config:      cfg,
		logger:      logger,
	}
}

// Initiate creates (or re-initiates) the payment for a booking group and
// returns the gateway intent the client completes the charge with
func (s *PaymentService) Initiate(userID string, req *models.InitiatePaymentRequest) (*models.GatewayIntent, error) {
	gateway, ok := s.gateways[req.Method]
	if !ok {
		return nil, models.NewValidationError(models.CodeInvalidRequest,
			fmt.Sprintf("unsupported payment method %s", req.Method))
	}

	group, err := s.bookingRepo.GetByID(req.BookingGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking group: %w", err)
	}
	if group == nil || group.UserID != userID {
		return nil, models.NewNotFoundError(models.CodeBookingNotFound, "booking group does not exist")
	}
	if group.Status != models.BookingGroupPendingPayment {
		return nil, models.NewStateViolationError(models.CodeInvalidTransition,
			fmt.Sprintf("booking group in %s state cannot be paid", group.Status))
	}
	if group.HoldExpired(time.Now()) {
		return nil, models.NewStateViolationError(models.CodeHoldExpired,
			"the seat hold for this booking has expired")
	}

	existing, err := s.paymentRepo.GetByBookingGroupID(group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if existing != nil && existing.Status != models.PaymentStatusFailed {
		return nil, models.NewConflictError(models.CodeAlreadyPaid,
			fmt.Sprintf("a payment in %s state already exists for this booking group", existing.Status))
	}

	payment := s.buildPayment(group, req.Method, userID)
	if existing != nil {
		// Retry after failure reuses the existing row
		payment.ID = existing.ID
	}

	intent, err := gateway.CreateIntent(payment, group)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		err = s.paymentRepo.Reinitiate(payment)
	} else {
		err = s.paymentRepo.Create(payment)
	}
	if err != nil {
		return nil, err
	}

	metrics.PaymentsInitiated.WithLabelValues(string(req.Method)).Inc()
	s.logger.WithFields(logrus.Fields{
		"payment_id":       payment.ID,
		"booking_group_id": group.ID,
		"method":           payment.Method,
		"charged_amount":   payment.ChargedAmount,
		"charged_currency": payment.ChargedCurrency,
	}).Info("Payment initiated")

	return intent, nil
}

// HandleCallback applies a gateway callback. Signature verification comes
// first; a callback for a payment already in a terminal state is acknowledged
// without effect so gateway retries stay idempotent.
func (s *PaymentService) HandleCallback(method models.PaymentMethod, callback *models.GatewayCallback) error {
	gateway, ok := s.gateways[method]
	if !ok {
		return models.NewValidationError(models.CodeInvalidRequest,
			fmt.Sprintf("unsupported payment method %s", method))
	}

	payment, err := s.paymentRepo.GetByGatewayOrderID(callback.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		metrics.PaymentCallbacks.WithLabelValues(string(method), "unknown").Inc()
		return models.NewNotFoundError(models.CodePaymentNotFound,
			"no payment matches the callback order")
	}
	if payment.Method != method {
		return models.NewValidationError(models.CodeInvalidRequest,
			"callback method does not match the payment's gateway")
	}

	if err := gateway.VerifyCallback(payment, callback); err != nil {
		metrics.PaymentCallbacks.WithLabelValues(string(method), "rejected").Inc()
		s.logger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"method":     method,
		}).Warn("Gateway callback signature rejected")
		return err
	}

	if payment.IsTerminal() {
		metrics.PaymentCallbacks.WithLabelValues(string(method), "replay").Inc()
		s.logger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"status":     payment.Status,
		}).Info("Ignoring replayed gateway callback")
		return nil
	}

	if callback.Success {
		if err := s.paymentRepo.ConfirmPaymentAndBooking(
			payment.ID, payment.BookingGroupID, callback.GatewayRef, callback.Signature,
		); err != nil {
			if s.confirmedConcurrently(payment.ID, err) {
				metrics.PaymentCallbacks.WithLabelValues(string(method), "replay").Inc()
				s.logger.WithFields(logrus.Fields{
					"payment_id": payment.ID,
				}).Info("Ignoring duplicate gateway callback, payment already confirmed")
				return nil
			}
			return err
		}
		metrics.PaymentCallbacks.WithLabelValues(string(method), "success").Inc()
		s.logger.WithFields(logrus.Fields{
			"payment_id":       payment.ID,
			"booking_group_id": payment.BookingGroupID,
		}).Info("Payment confirmed, booking group confirmed")
		return nil
	}

	if err := s.paymentRepo.MarkFailed(payment.ID, callback.GatewayRef); err != nil {
		return err
	}
	metrics.PaymentCallbacks.WithLabelValues(string(method), "failed").Inc()
	s.logger.WithFields(logrus.Fields{
		"payment_id":       payment.ID,
		"booking_group_id": payment.BookingGroupID,
	}).Info("Payment failed, booking group stays pending")
	return nil
}

// confirmedConcurrently reports whether a failed confirmation lost the
// guarded-update race to a duplicate callback that already applied the same
// success. Two gateway retries can pass the terminal-state check together;
// the loser re-reads the row and acknowledges instead of erroring.
func (s *PaymentService) confirmedConcurrently(paymentID uuid.UUID, confirmErr error) bool {
	de, ok := models.AsDomainError(confirmErr)
	if !ok || de.Code != models.CodeInvalidTransition {
		return false
	}
	current, err := s.paymentRepo.GetByID(paymentID)
	if err != nil || current == nil {
		return false
	}
	return current.Status == models.PaymentStatusSuccess
}

// Refund refunds a successful payment and its booking group
func (s *PaymentService) Refund(userID, groupID string) error {
	group, err := s.bookingRepo.GetByID(groupID)
	if err != nil {
		return fmt.Errorf("failed to get booking group: %w", err)
	}
	if group == nil || group.UserID != userID {
		return models.NewNotFoundError(models.CodeBookingNotFound, "booking group does not exist")
	}

	payment, err := s.paymentRepo.GetByBookingGroupID(groupID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return models.NewNotFoundError(models.CodePaymentNotFound,
			"booking group has no payment")
	}
	if payment.Status != models.PaymentStatusSuccess {
		return models.NewStateViolationError(models.CodeInvalidTransition,
			fmt.Sprintf("payment in %s state cannot be refunded", payment.Status))
	}

	if err := s.paymentRepo.RefundPaymentAndBooking(payment.ID, groupID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":       payment.ID,
		"booking_group_id": groupID,
	}).Info("Payment refunded, booking group refunded")
	return nil
}

// buildPayment fills in the amounts for a new payment attempt, converting to
// the gateway's settlement currency when it differs from the base currency
func (s *PaymentService) buildPayment(group *models.BookingGroup, method models.PaymentMethod, userID string) *models.Payment {
	payment := &models.Payment{
		ID:              uuid.New(),
		BookingGroupID:  group.ID,
		UserID:          userID,
		Method:          method,
		Status:          models.PaymentStatusInitiated,
		BaseAmount:      group.TotalAmount,
		BaseCurrency:    s.config.BaseCurrency,
		ChargedAmount:   group.TotalAmount,
		ChargedCurrency: s.config.BaseCurrency,
	}

	if method == models.PaymentMethodRazorpay {
		rate := s.config.ExchangeRateINR
		payment.ChargedAmount = roundToPaisa(group.TotalAmount * rate)
		payment.ChargedCurrency = "INR"
		payment.ExchangeRate = &rate
	}
	return payment
}

// roundToPaisa rounds to two decimal places, the minor unit of both NPR and
// INR
func roundToPaisa(amount float64) float64 {
	return math.Round(amount*100) / 100
}
