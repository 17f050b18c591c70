package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/campustransit/vehicle-booking-backend/internal/services"
	"github.com/campustransit/vehicle-booking-backend/internal/utils"
)

// ErrorResponse is the error body returned by every endpoint
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// respondError translates a service error into an HTTP response
func respondError(c *gin.Context, err error) {
	if svcErr, ok := services.AsError(err); ok {
		c.JSON(svcErr.HTTPStatus(), ErrorResponse{
			Error:   string(svcErr.Kind),
			Message: svcErr.Message,
			Details: svcErr.Details,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong",
	})
}

// clientInfo extracts the request metadata recorded in audit entries
func clientInfo(c *gin.Context) services.ClientInfo {
	userAgent := c.GetHeader("User-Agent")
	return services.ClientInfo{
		IPAddress:  c.ClientIP(),
		UserAgent:  userAgent,
		DeviceInfo: utils.ParseUserAgent(userAgent).Summary(),
	}
}
