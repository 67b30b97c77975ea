package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sajhabus/booking-backend/internal/config"
	"github.com/sajhabus/booking-backend/internal/database"
	"github.com/sajhabus/booking-backend/internal/models"
)

func setupBookingTest(t *testing.T) (*BookingService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}

	service := NewBookingService(
		database.NewTripRepository(postgresDB),
		database.NewBookingRepository(sqlxDB),
		database.NewPaymentRepository(sqlxDB),
		NewHolidayService(database.NewHolidayRepository(postgresDB)),
		NewFareService(),
		NewCouponService(database.NewCouponRepository(postgresDB)),
		config.BookingConfig{
			MaxSeatsPerBooking: 6,
			HoldTTL:            15 * time.Minute,
		},
		testLogger(),
	)

	cleanup := func() {
		db.Close()
	}
	return service, mock, cleanup
}

func tripColumns() []string {
	return []string{"id", "bus_id", "trip_date", "created_at", "updated_at"}
}

func stopColumns() []string {
	return []string{
		"id", "bus_id", "name", "route_order",
		"price_seater", "price_sleeper_lower", "price_sleeper_upper",
		"created_at", "updated_at",
	}
}

func stopPointColumns() []string {
	return []string{"id", "stop_id", "type", "name", "display_time", "point_order", "created_at", "updated_at"}
}

func seatColumns() []string {
	return []string{"id", "bus_id", "seat_number", "deck", "class", "created_at"}
}

// expectTripLoad mocks the trip lookup, holiday check, route and stop point
// loads that every booking walks through
func expectTripLoad(mock sqlmock.Sqlmock) {
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM trips").
		WithArgs("trip-1").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow("trip-1", "bus-1", now.Add(24*time.Hour), now, now))

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery("SELECT (.+) FROM stops").
		WithArgs("bus-1").
		WillReturnRows(sqlmock.NewRows(stopColumns()).
			AddRow("stop-ktm", "bus-1", "Kathmandu", 1, 900.0, 1400.0, 1200.0, now, now).
			AddRow("stop-pkr", "bus-1", "Pokhara", 2, 0.0, 0.0, 0.0, now, now))

	mock.ExpectQuery("SELECT (.+) FROM stop_points").
		WithArgs("bp-1").
		WillReturnRows(sqlmock.NewRows(stopPointColumns()).
			AddRow("bp-1", "stop-ktm", "boarding", "Kalanki", "06:30", 1, now, now))

	mock.ExpectQuery("SELECT (.+) FROM stop_points").
		WithArgs("dp-1").
		WillReturnRows(sqlmock.NewRows(stopPointColumns()).
			AddRow("dp-1", "stop-pkr", "dropping", "Tourist Bus Park", "13:00", 1, now, now))
}

func bookingRequest(seatIDs []string, passengers []models.CreatePassengerRequest) *models.CreateBookingGroupRequest {
	return &models.CreateBookingGroupRequest{
		TripID:          "trip-1",
		FromStopID:      "stop-ktm",
		ToStopID:        "stop-pkr",
		BoardingPointID: "bp-1",
		DroppingPointID: "dp-1",
		SeatIDs:         seatIDs,
		Passengers:      passengers,
	}
}

func TestCreateBooking_TripNotFound(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM trips").
		WithArgs("trip-1").
		WillReturnRows(sqlmock.NewRows(tripColumns()))

	_, err := service.CreateBooking("user-1", bookingRequest(
		[]string{"seat-1"},
		[]models.CreatePassengerRequest{{SeatID: "seat-1", Name: "Sita", Age: 28, Gender: "female"}},
	))
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeTripNotFound, de.Code)
}

func TestCreateBooking_HolidayBlocked(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM trips").
		WithArgs("trip-1").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow("trip-1", "bus-1", now.Add(24*time.Hour), now, now))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := service.CreateBooking("user-1", bookingRequest(
		[]string{"seat-1"},
		[]models.CreatePassengerRequest{{SeatID: "seat-1", Name: "Sita", Age: 28, Gender: "female"}},
	))
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeTripNotOperational, de.Code)
}

func TestCreateBooking_TooManySeats(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectTripLoad(mock)

	seatIDs := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"}
	passengers := make([]models.CreatePassengerRequest, len(seatIDs))
	for i, id := range seatIDs {
		passengers[i] = models.CreatePassengerRequest{SeatID: id, Name: "P", Age: 30, Gender: "other"}
	}

	_, err := service.CreateBooking("user-1", bookingRequest(seatIDs, passengers))
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeInvalidRequest, de.Code)
	assert.Equal(t, models.ErrValidation, de.Kind)
}

func TestCreateBooking_DuplicateSeat(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectTripLoad(mock)

	_, err := service.CreateBooking("user-1", bookingRequest(
		[]string{"seat-1", "seat-1"},
		[]models.CreatePassengerRequest{
			{SeatID: "seat-1", Name: "Sita", Age: 28, Gender: "female"},
			{SeatID: "seat-1", Name: "Ram", Age: 30, Gender: "male"},
		},
	))
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeInvalidRequest, de.Code)
}

func TestCreateBooking_SeatConflictNamesSeats(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectTripLoad(mock)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM seats").
		WithArgs("bus-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(seatColumns()).
			AddRow("seat-1", "bus-1", "A1", "lower", "seater", now).
			AddRow("seat-2", "bus-1", "A2", "lower", "seater", now))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO booking_groups").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("UPDATE seat_reservations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// First claim loses the race
	mock.ExpectExec("INSERT INTO seat_reservations").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery("SELECT s.seat_number").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("A1"))
	mock.ExpectRollback()

	_, err := service.CreateBooking("user-1", bookingRequest(
		[]string{"seat-1", "seat-2"},
		[]models.CreatePassengerRequest{
			{SeatID: "seat-1", Name: "Sita", Age: 28, Gender: "female"},
			{SeatID: "seat-2", Name: "Ram", Age: 30, Gender: "male"},
		},
	))
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeSeatUnavailable, de.Code)
	assert.Equal(t, models.ErrConflict, de.Kind)
	assert.Equal(t, []string{"A1"}, de.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_WithCoupon(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectTripLoad(mock)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM seats").
		WithArgs("bus-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(seatColumns()).
			AddRow("seat-1", "bus-1", "A1", "lower", "seater", now))

	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("SAVE10").
		WillReturnRows(couponRows().AddRow(
			"coupon-1", "SAVE10", "percentage", 10.0, 0.0,
			nil, nil, now.Add(-time.Hour), now.Add(time.Hour),
			0, 0, true, now, now,
		))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO booking_groups").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("UPDATE seat_reservations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO seat_reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO passengers").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("UPDATE coupons").
		WithArgs("coupon-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	code := "SAVE10"
	req := bookingRequest(
		[]string{"seat-1"},
		[]models.CreatePassengerRequest{{SeatID: "seat-1", Name: "Sita", Age: 28, Gender: "female"}},
	)
	req.CouponCode = &code

	group, err := service.CreateBooking("user-1", req)
	require.NoError(t, err)

	assert.Equal(t, models.BookingGroupPendingPayment, group.Status)
	assert.Equal(t, 900.0, group.Subtotal)
	assert.Equal(t, 90.0, group.DiscountAmount)
	assert.Equal(t, 810.0, group.TotalAmount)
	assert.True(t, group.HoldExpiresAt.After(time.Now().Add(14*time.Minute)))
	require.Len(t, group.Passengers, 1)
	assert.Equal(t, "A1", group.Passengers[0].SeatNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_PassengerSeatMismatch(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectTripLoad(mock)

	_, err := service.CreateBooking("user-1", bookingRequest(
		[]string{"seat-1"},
		[]models.CreatePassengerRequest{{SeatID: "seat-99", Name: "Sita", Age: 28, Gender: "female"}},
	))
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeInvalidRequest, de.Code)
}

func TestCancel_PendingBooking(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectGroupLookup(mock, "group-1", "user-1", models.BookingGroupPendingPayment,
		900, time.Now().Add(10*time.Minute))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE booking_groups").
		WithArgs("group-1", models.BookingGroupPendingPayment).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE seat_reservations").
		WithArgs("group-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	expectGroupLookup(mock, "group-1", "user-1", models.BookingGroupCancelled,
		900, time.Now().Add(10*time.Minute))

	group, err := service.Cancel("user-1", "group-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingGroupCancelled, group.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_TerminalState(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectGroupLookup(mock, "group-1", "user-1", models.BookingGroupRefunded,
		900, time.Now().Add(-time.Hour))

	_, err := service.Cancel("user-1", "group-1")
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeInvalidTransition, de.Code)
	assert.Equal(t, models.ErrStateViolation, de.Kind)
}

func TestGetBooking_OtherUsersBookingHidden(t *testing.T) {
	service, mock, cleanup := setupBookingTest(t)
	defer cleanup()

	expectGroupLookup(mock, "group-1", "user-1", models.BookingGroupConfirmed,
		900, time.Now().Add(-time.Hour))

	_, err := service.GetBooking("someone-else", "group-1")
	require.Error(t, err)
	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeBookingNotFound, de.Code)
}
