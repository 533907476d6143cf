package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithDetails is RespondWithError plus the underlying cause, used
// when an upstream system rejected the request.
func RespondWithDetails(c *gin.Context, statusCode int, customMessage, details string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
		Details: details,
	})
}

func AbortWithError(c *gin.Context, statusCode int, customMessage string) {
	RespondWithError(c, statusCode, customMessage)
	c.Abort()
}
