package services

import (
	"fmt"

	"github.com/sajhabus/booking-backend/internal/models"
)

// FareService computes stop-pair fares. Pricing is boarding-stop-anchored:
// each stop stores the per-class fare from that stop to the end of the
// route, and a segment is charged the boarding stop's fare regardless of
// where the passenger alights. Pure computation over loaded route data.
type FareService struct{}

// NewFareService creates a new FareService
func NewFareService() *FareService {
	return &FareService{}
}

// SegmentStops resolves the boarding and dropping stop points onto the route
// and validates the segment ordering. Boarding must come strictly before
// dropping on the route; anything else is an INVALID_SEGMENT.
func (s *FareService) SegmentStops(
	route []models.Stop,
	boarding, dropping *models.StopPoint,
) (*models.Stop, *models.Stop, error) {
	if boarding.Type != models.StopPointBoarding {
		return nil, nil, models.NewValidationError(models.CodeInvalidRequest,
			"boarding point is not a boarding-type stop point")
	}
	if dropping.Type != models.StopPointDropping {
		return nil, nil, models.NewValidationError(models.CodeInvalidRequest,
			"dropping point is not a dropping-type stop point")
	}

	var boardingStop, droppingStop *models.Stop
	for i := range route {
		if route[i].ID == boarding.StopID {
			boardingStop = &route[i]
		}
		if route[i].ID == dropping.StopID {
			droppingStop = &route[i]
		}
	}
	if boardingStop == nil || droppingStop == nil {
		return nil, nil, models.NewValidationError(models.CodeInvalidSegment,
			"stop points do not belong to the trip's route")
	}
	if boardingStop.RouteOrder >= droppingStop.RouteOrder {
		return nil, nil, models.NewValidationError(models.CodeInvalidSegment,
			fmt.Sprintf("boarding stop %s does not precede dropping stop %s on the route",
				boardingStop.Name, droppingStop.Name))
	}
	return boardingStop, droppingStop, nil
}

// Price returns the fare for one seat class over the segment. Deterministic
// and side-effect-free.
func (s *FareService) Price(
	route []models.Stop,
	boarding, dropping *models.StopPoint,
	class models.SeatClass,
) (float64, error) {
	boardingStop, _, err := s.SegmentStops(route, boarding, dropping)
	if err != nil {
		return 0, err
	}
	return boardingStop.PriceFor(class), nil
}

// RouteFares returns the per-class fares for the full route, anchored on the
// route's first stop. Used to annotate search results.
func (s *FareService) RouteFares(route []models.Stop) models.ClassFares {
	if len(route) == 0 {
		return models.ClassFares{}
	}
	first := route[0]
	return models.ClassFares{
		Seater:       first.PriceSeater,
		SleeperLower: first.PriceSleeperLower,
		SleeperUpper: first.PriceSleeperUpper,
	}
}

// SegmentFares returns the per-class fares anchored on a specific boarding
// stop of the route
func (s *FareService) SegmentFares(route []models.Stop, fromStopID, toStopID string) (models.ClassFares, error) {
	var from, to *models.Stop
	for i := range route {
		if route[i].ID == fromStopID {
			from = &route[i]
		}
		if route[i].ID == toStopID {
			to = &route[i]
		}
	}
	if from == nil || to == nil {
		return models.ClassFares{}, models.NewValidationError(models.CodeInvalidSegment,
			"stops do not belong to the trip's route")
	}
	if from.RouteOrder >= to.RouteOrder {
		return models.ClassFares{}, models.NewValidationError(models.CodeInvalidSegment,
			fmt.Sprintf("stop %s does not precede stop %s on the route", from.Name, to.Name))
	}
	return models.ClassFares{
		Seater:       from.PriceSeater,
		SleeperLower: from.PriceSleeperLower,
		SleeperUpper: from.PriceSleeperUpper,
	}, nil
}
