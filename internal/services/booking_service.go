package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/config"
	"github.com/sajhabus/booking-backend/internal/database"
	"github.com/sajhabus/booking-backend/internal/metrics"
	"github.com/sajhabus/booking-backend/internal/models"
)

// BookingService is the seat allocator and booking transaction engine. Fare
// calculation and coupon validation run uncoordinated; only the final commit
// (seat claim + group creation + coupon usage increment) is transactional,
// inside BookingRepository.
type BookingService struct {
	tripRepo    *database.TripRepository
	bookingRepo *database.BookingRepository
	paymentRepo *database.PaymentRepository
	holidaySvc  *HolidayService
	fareSvc     *FareService
	couponSvc   *CouponService
	config      config.BookingConfig
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	tripRepo *database.TripRepository,
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	holidaySvc *HolidayService,
	fareSvc *FareService,
	couponSvc *CouponService,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		holidaySvc:  holidaySvc,
		fareSvc:     fareSvc,
		couponSvc:   couponSvc,
		config:      cfg,
		logger:      logger,
	}
}

// CreateBooking attempts to atomically reserve the requested seats into a
// new booking group. On a seat conflict the whole request fails with
// SEAT_UNAVAILABLE naming the contested seats; no partial booking is ever
// created.
func (s *BookingService) CreateBooking(userID string, req *models.CreateBookingGroupRequest) (*models.BookingGroup, error) {
	// 1. Trip must exist and the bus must run that day; the holiday filter
	// is re-checked here, not trusted from search time
	trip, err := s.tripRepo.GetTripByID(req.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	if trip == nil {
		return nil, models.NewNotFoundError(models.CodeTripNotFound, "trip does not exist")
	}

	operational, err := s.holidaySvc.IsOperational(trip.BusID, trip.TripDate)
	if err != nil {
		return nil, err
	}
	if !operational {
		return nil, models.NewValidationError(models.CodeTripNotOperational,
			"the bus does not operate on this date")
	}

	// 2. The stop pair must form a valid ordered segment of the route
	route, err := s.tripRepo.GetRouteStops(trip.BusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}

	boarding, dropping, err := s.loadStopPoints(req.BoardingPointID, req.DroppingPointID)
	if err != nil {
		return nil, err
	}
	if boarding.StopID != req.FromStopID || dropping.StopID != req.ToStopID {
		return nil, models.NewValidationError(models.CodeInvalidRequest,
			"stop points do not match the requested stops")
	}
	if _, _, err := s.fareSvc.SegmentStops(route, boarding, dropping); err != nil {
		return nil, err
	}

	// 3. Validate the seat set and pair every seat with a passenger
	seats, err := s.validateSeats(trip, req)
	if err != nil {
		return nil, err
	}

	// 4. Subtotal is the boarding-anchored fare summed over seat classes
	var subtotal float64
	for _, seat := range seats {
		price, err := s.fareSvc.Price(route, boarding, dropping, seat.Class)
		if err != nil {
			return nil, err
		}
		subtotal += price
	}

	// 5. Optional coupon: validate now, commit the usage increment inside
	// the booking transaction
	var decision *models.CouponDecision
	total := subtotal
	var discount float64
	if req.CouponCode != nil && *req.CouponCode != "" {
		decision, err = s.couponSvc.Apply(*req.CouponCode, trip.ID, trip.BusID, subtotal)
		if err != nil {
			return nil, err
		}
		discount = decision.Discount
		total = decision.FinalAmount
	}

	// 6. Build and atomically persist the group
	reference, err := s.bookingRepo.GenerateBookingReference()
	if err != nil {
		return nil, err
	}

	group := &models.BookingGroup{
		ID:               uuid.New().String(),
		TripID:           trip.ID,
		UserID:           userID,
		BookingReference: reference,
		BoardingPointID:  boarding.ID,
		DroppingPointID:  dropping.ID,
		Status:           models.BookingGroupPendingPayment,
		Subtotal:         subtotal,
		DiscountAmount:   discount,
		TotalAmount:      total,
		CouponCode:       req.CouponCode,
		HoldExpiresAt:    time.Now().Add(s.config.HoldTTL),
	}

	passengers := s.buildPassengers(req, seats)

	var coupon *models.Coupon
	if decision != nil {
		coupon = decision.Coupon
	}

	if err := s.bookingRepo.CreateBookingGroup(group, passengers, coupon); err != nil {
		if de, ok := models.AsDomainError(err); ok && de.Code == models.CodeSeatUnavailable {
			metrics.SeatConflicts.Inc()
			s.logger.WithFields(logrus.Fields{
				"trip_id": trip.ID,
				"user_id": userID,
				"seats":   de.Seats,
			}).Info("Booking rejected, seats already held")
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.logger.WithFields(logrus.Fields{
		"booking_group_id":  group.ID,
		"booking_reference": group.BookingReference,
		"trip_id":           trip.ID,
		"user_id":           userID,
		"seats":             len(passengers),
		"total_amount":      group.TotalAmount,
		"hold_expires_at":   group.HoldExpiresAt,
	}).Info("Booking group created")

	return group, nil
}

// GetBooking returns a booking group owned by the user
func (s *BookingService) GetBooking(userID, groupID string) (*models.BookingGroup, error) {
	group, err := s.bookingRepo.GetByID(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking group: %w", err)
	}
	if group == nil || group.UserID != userID {
		return nil, models.NewNotFoundError(models.CodeBookingNotFound, "booking group does not exist")
	}
	return group, nil
}

// Cancel cancels a booking group. PENDING_PAYMENT groups are cancelled
// directly; CONFIRMED groups with a successful payment go through the refund
// transition so the payment and the group move together.
func (s *BookingService) Cancel(userID, groupID string) (*models.BookingGroup, error) {
	group, err := s.GetBooking(userID, groupID)
	if err != nil {
		return nil, err
	}
	if !group.CanCancel() {
		return nil, models.NewStateViolationError(models.CodeInvalidTransition,
			fmt.Sprintf("booking group in %s state cannot be cancelled", group.Status))
	}

	switch group.Status {
	case models.BookingGroupPendingPayment:
		if err := s.bookingRepo.CancelGroup(groupID, models.BookingGroupPendingPayment); err != nil {
			return nil, err
		}
	case models.BookingGroupConfirmed:
		payment, err := s.paymentRepo.GetByBookingGroupID(groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to get payment: %w", err)
		}
		if payment != nil && payment.Status == models.PaymentStatusSuccess {
			if err := s.paymentRepo.RefundPaymentAndBooking(payment.ID, groupID); err != nil {
				return nil, err
			}
		} else {
			if err := s.bookingRepo.CancelGroup(groupID, models.BookingGroupConfirmed); err != nil {
				return nil, err
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_group_id": groupID,
		"user_id":          userID,
		"previous_status":  group.Status,
	}).Info("Booking group cancelled")

	return s.bookingRepo.GetByID(groupID)
}

// ReleaseExpiredHolds cancels unpaid groups whose hold deadline has passed,
// making their seats visible to new claims. Driven by the cron sweep.
func (s *BookingService) ReleaseExpiredHolds() {
	released, err := s.bookingRepo.ReleaseExpiredHolds()
	if err != nil {
		s.logger.WithError(err).Error("Failed to release expired booking holds")
		return
	}
	if released > 0 {
		metrics.HoldsExpired.Add(float64(released))
		s.logger.WithField("count", released).Info("Released expired booking holds")
	}
}

// loadStopPoints fetches both stop points, failing with NOT_FOUND for
// unknown IDs
func (s *BookingService) loadStopPoints(boardingID, droppingID string) (*models.StopPoint, *models.StopPoint, error) {
	boarding, err := s.tripRepo.GetStopPointByID(boardingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get boarding point: %w", err)
	}
	if boarding == nil {
		return nil, nil, models.NewNotFoundError(models.CodeStopPointNotFound, "boarding point does not exist")
	}

	dropping, err := s.tripRepo.GetStopPointByID(droppingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get dropping point: %w", err)
	}
	if dropping == nil {
		return nil, nil, models.NewNotFoundError(models.CodeStopPointNotFound, "dropping point does not exist")
	}

	return boarding, dropping, nil
}

// validateSeats checks the requested seat set against the trip's bus and the
// passenger list
func (s *BookingService) validateSeats(trip *models.Trip, req *models.CreateBookingGroupRequest) ([]models.Seat, error) {
	if len(req.SeatIDs) == 0 {
		return nil, models.NewValidationError(models.CodeInvalidRequest, "at least one seat is required")
	}
	if len(req.SeatIDs) > s.config.MaxSeatsPerBooking {
		return nil, models.NewValidationError(models.CodeInvalidRequest,
			fmt.Sprintf("at most %d seats can be booked at once", s.config.MaxSeatsPerBooking))
	}

	seen := make(map[string]bool, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if seen[id] {
			return nil, models.NewValidationError(models.CodeInvalidRequest,
				fmt.Sprintf("seat %s is requested more than once", id))
		}
		seen[id] = true
	}

	if len(req.Passengers) != len(req.SeatIDs) {
		return nil, models.NewValidationError(models.CodeInvalidRequest,
			"exactly one passenger is required per seat")
	}
	assigned := make(map[string]bool, len(req.Passengers))
	for _, p := range req.Passengers {
		if !seen[p.SeatID] {
			return nil, models.NewValidationError(models.CodeInvalidRequest,
				fmt.Sprintf("passenger assigned to seat %s which is not in the request", p.SeatID))
		}
		if assigned[p.SeatID] {
			return nil, models.NewValidationError(models.CodeInvalidRequest,
				fmt.Sprintf("seat %s has more than one passenger", p.SeatID))
		}
		assigned[p.SeatID] = true
	}

	seats, err := s.tripRepo.GetSeatsByIDs(trip.BusID, req.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	if len(seats) != len(req.SeatIDs) {
		return nil, models.NewNotFoundError(models.CodeSeatNotFound,
			"one or more seats do not belong to the trip's bus")
	}
	return seats, nil
}

// buildPassengers pairs each passenger with their seat
func (s *BookingService) buildPassengers(req *models.CreateBookingGroupRequest, seats []models.Seat) []models.Passenger {
	seatsByID := make(map[string]models.Seat, len(seats))
	for _, seat := range seats {
		seatsByID[seat.ID] = seat
	}

	passengers := make([]models.Passenger, len(req.Passengers))
	for i, p := range req.Passengers {
		passengers[i] = models.Passenger{
			ID:         uuid.New().String(),
			SeatID:     p.SeatID,
			SeatNumber: seatsByID[p.SeatID].SeatNumber,
			Name:       p.Name,
			Age:        p.Age,
			Gender:     p.Gender,
			Phone:      p.Phone,
		}
	}
	return passengers
}
