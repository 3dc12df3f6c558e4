package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulacast/backend/internal/broadcast"
	"github.com/aulacast/backend/internal/provider"
)

// ErrorResponse sends a standardized error response
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// ServiceError maps the synchronizer's error taxonomy onto HTTP statuses.
// The UI layer owns user-visible messaging; the payload carries enough to
// distinguish the cases.
func ServiceError(c *gin.Context, err error) {
	var pe *provider.Error
	switch {
	case errors.Is(err, broadcast.ErrRecordNotFound):
		ErrorResponse(c, http.StatusNotFound, "session not found")
	case errors.Is(err, broadcast.ErrNoActiveSession):
		ErrorResponse(c, http.StatusNotFound, "no active session")
	case errors.Is(err, broadcast.ErrRemoteResourceNotFound):
		ErrorResponse(c, http.StatusNotFound, "remote video not found")
	case errors.Is(err, provider.ErrCredentialsUnavailable):
		ErrorResponse(c, http.StatusServiceUnavailable, "platform credentials unavailable")
	case errors.As(err, &pe):
		ErrorResponse(c, http.StatusBadGateway, pe.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, "internal error")
	}
}
