package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/database"
	"github.com/sajhabus/booking-backend/internal/models"
)

// SearchService answers trip searches. Results are filtered through the
// holiday calendar and annotated with boarding-anchored fares.
type SearchService struct {
	tripRepo   *database.TripRepository
	holidaySvc *HolidayService
	fareSvc    *FareService
	logger     *logrus.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(
	tripRepo *database.TripRepository,
	holidaySvc *HolidayService,
	fareSvc *FareService,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		tripRepo:   tripRepo,
		holidaySvc: holidaySvc,
		fareSvc:    fareSvc,
		logger:     logger,
	}
}

// Search returns trips running between the named locations on the date,
// excluding buses on holiday
func (s *SearchService) Search(req *models.SearchRequest) ([]models.TripSearchResult, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, models.NewValidationError(models.CodeInvalidRequest,
			"date must be in YYYY-MM-DD format")
	}

	trips, err := s.tripRepo.SearchTrips(req.From, req.To, req.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}

	results := []models.TripSearchResult{}
	for _, trip := range trips {
		operational, err := s.holidaySvc.IsOperational(trip.BusID, date)
		if err != nil {
			return nil, err
		}
		if !operational {
			continue
		}

		route, err := s.tripRepo.GetRouteStops(trip.BusID)
		if err != nil {
			return nil, fmt.Errorf("failed to load route: %w", err)
		}
		fares, err := s.fareSvc.SegmentFares(route, trip.FromStopID, trip.ToStopID)
		if err != nil {
			// A trip matched by the search query always has from before to;
			// anything else is a data problem, skip the trip rather than
			// failing the whole search.
			s.logger.WithError(err).WithField("trip_id", trip.TripID).
				Warn("Skipping trip with inconsistent route data")
			continue
		}
		trip.Fares = fares
		results = append(results, trip)
	}

	return results, nil
}

// TripSeats returns the trip's seat map with per-seat availability
func (s *SearchService) TripSeats(tripID string) ([]models.TripSeat, error) {
	trip, err := s.tripRepo.GetTripByID(tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	if trip == nil {
		return nil, models.NewNotFoundError(models.CodeTripNotFound, "trip does not exist")
	}
	return s.tripRepo.GetTripSeats(tripID)
}
