package services

import (
	"fmt"
	"time"

	"github.com/sajhabus/booking-backend/internal/database"
)

// HolidayService answers whether a bus runs on a calendar date. Read-only;
// callers re-check at booking time rather than trusting a search-time
// result, because holidays can be declared between search and purchase.
type HolidayService struct {
	holidayRepo *database.HolidayRepository
}

// NewHolidayService creates a new HolidayService
func NewHolidayService(holidayRepo *database.HolidayRepository) *HolidayService {
	return &HolidayService{holidayRepo: holidayRepo}
}

// IsOperational reports whether the bus runs on the given date
func (s *HolidayService) IsOperational(busID string, date time.Time) (bool, error) {
	exists, err := s.holidayRepo.Exists(busID, date.Format("2006-01-02"))
	if err != nil {
		return false, fmt.Errorf("failed to check holiday: %w", err)
	}
	return !exists, nil
}
