package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/middleware"
	"github.com/sajhabus/booking-backend/internal/models"
	"github.com/sajhabus/booking-backend/internal/services"
)

// BookingHandler handles HTTP requests for booking groups
type BookingHandler struct {
	service *services.BookingService
	logger  *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger,
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.CreateBookingGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    models.CodeInvalidRequest,
			"message": "Invalid request format",
			"error":   err.Error(),
		})
		return
	}

	group, err := h.service.CreateBooking(user.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"booking": group,
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	group, err := h.service.GetBooking(user.UserID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"booking": group,
	})
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	group, err := h.service.Cancel(user.UserID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"booking": group,
	})
}
