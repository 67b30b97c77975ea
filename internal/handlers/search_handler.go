package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/models"
	"github.com/sajhabus/booking-backend/internal/services"
)

// SearchHandler handles HTTP requests for trip search and seat maps
type SearchHandler struct {
	service *services.SearchService
	logger  *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// SearchTrips handles GET /api/v1/search?from=X&to=Y&date=YYYY-MM-DD
func (h *SearchHandler) SearchTrips(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    models.CodeInvalidRequest,
			"message": "from, to and date query parameters are required",
		})
		return
	}

	results, err := h.service.Search(&req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": results,
		"count":   len(results),
	})
}

// TripSeats handles GET /api/v1/trips/:id/seats
func (h *SearchHandler) TripSeats(c *gin.Context) {
	seats, err := h.service.TripSeats(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"seats":  seats,
	})
}
