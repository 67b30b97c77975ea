package database

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/sajhabus/booking-backend/internal/models"
)

// TripRepository reads trips, route stops, stop points and seats. These
// tables are managed by the admin system and are read-only inputs here.
type TripRepository struct {
	db DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db DB) *TripRepository {
	return &TripRepository{db: db}
}

// GetTripByID retrieves a trip by ID, nil when not found
func (r *TripRepository) GetTripByID(tripID string) (*models.Trip, error) {
	query := `
		SELECT id, bus_id, trip_date, created_at, updated_at
		FROM trips
		WHERE id = $1
	`

	var trip models.Trip
	err := r.db.Get(&trip, query, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// GetRouteStops returns the stops of a bus's route in route order
func (r *TripRepository) GetRouteStops(busID string) ([]models.Stop, error) {
	query := `
		SELECT id, bus_id, name, route_order,
		       price_seater, price_sleeper_lower, price_sleeper_upper,
		       created_at, updated_at
		FROM stops
		WHERE bus_id = $1
		ORDER BY route_order
	`

	stops := []models.Stop{}
	if err := r.db.Select(&stops, query, busID); err != nil {
		return nil, err
	}
	return stops, nil
}

// GetStopPointByID retrieves a stop point by ID, nil when not found
func (r *TripRepository) GetStopPointByID(pointID string) (*models.StopPoint, error) {
	query := `
		SELECT id, stop_id, type, name, display_time, point_order,
		       created_at, updated_at
		FROM stop_points
		WHERE id = $1
	`

	var point models.StopPoint
	err := r.db.Get(&point, query, pointID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// GetSeatsByIDs returns the requested seats that belong to the given bus
func (r *TripRepository) GetSeatsByIDs(busID string, seatIDs []string) ([]models.Seat, error) {
	query := `
		SELECT id, bus_id, seat_number, deck, class, created_at
		FROM seats
		WHERE bus_id = $1 AND id = ANY($2)
		ORDER BY seat_number
	`

	seats := []models.Seat{}
	if err := r.db.Select(&seats, query, busID, pq.Array(seatIDs)); err != nil {
		return nil, err
	}
	return seats, nil
}

// GetTripSeats returns every seat of the trip's bus annotated with whether an
// active booking group currently holds it
func (r *TripRepository) GetTripSeats(tripID string) ([]models.TripSeat, error) {
	query := `
		SELECT s.id, s.bus_id, s.seat_number, s.deck, s.class, s.created_at,
		       NOT EXISTS (
		           SELECT 1
		           FROM seat_reservations sr
		           JOIN booking_groups bg ON bg.id = sr.booking_group_id
		           WHERE sr.trip_id = t.id
		             AND sr.seat_id = s.id
		             AND (bg.status = 'confirmed'
		                  OR (bg.status = 'pending_payment' AND bg.hold_expires_at > NOW()))
		       ) AS available
		FROM trips t
		JOIN seats s ON s.bus_id = t.bus_id
		WHERE t.id = $1
		ORDER BY s.deck, s.seat_number
	`

	seats := []models.TripSeat{}
	if err := r.db.Select(&seats, query, tripID); err != nil {
		return nil, err
	}
	return seats, nil
}

// SearchTrips returns trips on the given date whose route passes the named
// start location before the named end location. Holiday filtering happens in
// the service so booking re-checks share the same code path.
func (r *TripRepository) SearchTrips(from, to string, date string) ([]models.TripSearchResult, error) {
	query := `
		SELECT t.id AS trip_id, t.bus_id, b.name AS bus_name, b.number AS bus_number,
		       t.trip_date, sf.id AS from_stop_id, st.id AS to_stop_id
		FROM trips t
		JOIN buses b ON b.id = t.bus_id
		JOIN stops sf ON sf.bus_id = t.bus_id AND LOWER(sf.name) = LOWER($1)
		JOIN stops st ON st.bus_id = t.bus_id AND LOWER(st.name) = LOWER($2)
		WHERE t.trip_date = $3
		  AND sf.route_order < st.route_order
		ORDER BY b.name
	`

	results := []models.TripSearchResult{}
	if err := r.db.Select(&results, query, from, to, date); err != nil {
		return nil, err
	}
	return results, nil
}
