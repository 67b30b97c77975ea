package models

import (
	"time"
)

// SeatClass represents the seat category used for pricing
// Matches PostgreSQL ENUM: seat_class
type SeatClass string

const (
	SeatClassSeater       SeatClass = "seater"
	SeatClassSleeperLower SeatClass = "sleeper_lower"
	SeatClassSleeperUpper SeatClass = "sleeper_upper"
)

// StopPointType distinguishes boarding from dropping stop points
type StopPointType string

const (
	StopPointBoarding StopPointType = "boarding"
	StopPointDropping StopPointType = "dropping"
)

// Bus is a vehicle with a fixed route and seat map, managed by the admin
// system
type Bus struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Number    string    `json:"number" db:"number"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Trip is one dated run of a bus over its route
type Trip struct {
	ID        string    `json:"id" db:"id"`
	BusID     string    `json:"bus_id" db:"bus_id"`
	TripDate  time.Time `json:"trip_date" db:"trip_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Stop is one ordered stop on a bus's route. Fares are boarding-anchored:
// each stop carries the per-class price charged to passengers who board
// there, whatever their dropping stop.
type Stop struct {
	ID                string    `json:"id" db:"id"`
	BusID             string    `json:"bus_id" db:"bus_id"`
	Name              string    `json:"name" db:"name"`
	RouteOrder        int       `json:"route_order" db:"route_order"`
	PriceSeater       float64   `json:"price_seater" db:"price_seater"`
	PriceSleeperLower float64   `json:"price_sleeper_lower" db:"price_sleeper_lower"`
	PriceSleeperUpper float64   `json:"price_sleeper_upper" db:"price_sleeper_upper"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// PriceFor returns the stop's fare for the given seat class
func (s *Stop) PriceFor(class SeatClass) float64 {
	switch class {
	case SeatClassSleeperLower:
		return s.PriceSleeperLower
	case SeatClassSleeperUpper:
		return s.PriceSleeperUpper
	default:
		return s.PriceSeater
	}
}

// StopPoint is a concrete pickup or drop location belonging to a stop
type StopPoint struct {
	ID          string        `json:"id" db:"id"`
	StopID      string        `json:"stop_id" db:"stop_id"`
	Type        StopPointType `json:"type" db:"type"`
	Name        string        `json:"name" db:"name"`
	DisplayTime string        `json:"display_time" db:"display_time"`
	PointOrder  int           `json:"point_order" db:"point_order"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Seat is one physical seat on a bus
type Seat struct {
	ID         string    `json:"id" db:"id"`
	BusID      string    `json:"bus_id" db:"bus_id"`
	SeatNumber string    `json:"seat_number" db:"seat_number"`
	Deck       string    `json:"deck" db:"deck"`
	Class      SeatClass `json:"class" db:"class"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TripSeat is a seat annotated with its availability on a specific trip
type TripSeat struct {
	Seat
	Available bool `json:"available" db:"available"`
}

// Holiday marks a (bus, date) pair as non-operational
type Holiday struct {
	ID        string    `json:"id" db:"id"`
	BusID     string    `json:"bus_id" db:"bus_id"`
	Date      time.Time `json:"date" db:"date"`
	Reason    *string   `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
