package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sajhabus/booking-backend/internal/models"
)

// respondError maps a service error onto the HTTP response. Domain errors
// carry their own kind and code; anything else is a 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	if de, ok := models.AsDomainError(err); ok {
		body := gin.H{
			"status":  "error",
			"code":    de.Code,
			"message": de.Message,
		}
		if len(de.Seats) > 0 {
			body["seats"] = de.Seats
		}
		c.JSON(statusFor(de), body)
		return
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"code":    "INTERNAL_ERROR",
		"message": "Something went wrong. Please try again later.",
	})
}

func statusFor(de *models.DomainError) int {
	switch de.Kind {
	case models.ErrValidation:
		return http.StatusBadRequest
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrConflict:
		return http.StatusConflict
	case models.ErrStateViolation:
		return http.StatusUnprocessableEntity
	case models.ErrExternal:
		if de.Code == models.CodeSignatureMismatch {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
