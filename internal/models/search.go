package models

import (
	"time"
)

// ClassFares carries per-class prices for a trip or segment
type ClassFares struct {
	Seater       float64 `json:"seater"`
	SleeperLower float64 `json:"sleeper_lower"`
	SleeperUpper float64 `json:"sleeper_upper"`
}

// TripSearchResult is one trip matching a search, annotated with route fares
type TripSearchResult struct {
	TripID     string     `json:"trip_id" db:"trip_id"`
	BusID      string     `json:"bus_id" db:"bus_id"`
	BusName    string     `json:"bus_name" db:"bus_name"`
	BusNumber  string     `json:"bus_number" db:"bus_number"`
	TripDate   time.Time  `json:"trip_date" db:"trip_date"`
	FromStopID string     `json:"from_stop_id" db:"from_stop_id"`
	ToStopID   string     `json:"to_stop_id" db:"to_stop_id"`
	Fares      ClassFares `json:"fares"`
}

// SearchRequest carries trip search parameters
type SearchRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
	Date string `form:"date" binding:"required"` // YYYY-MM-DD
}
