package handlers

import (
	"errors"
	"net/http"

	"ambulance/models"
	"ambulance/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps a service error to its status code and user-visible
// message.
func respondError(c *gin.Context, err error) {
	status, message := classify(err)
	details := err.Error()
	if status >= http.StatusInternalServerError {
		getLogger(c).Error(message, zap.Error(err))
		details = "Please try again later."
	}
	utils.JSONError(c, status, message, details)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "Please sign in to continue"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "You do not have permission to do this"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrAlreadyAdmin):
		return http.StatusConflict, "User is already an admin"
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "Invalid status"
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
}
