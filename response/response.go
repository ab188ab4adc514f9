package response

import (
	"net/http"

	"affiliate/errors"

	"github.com/gin-gonic/gin"
)

// Envelope is the error body shape: {"success":false,"error":"..."}.
// Success bodies are endpoint-specific and written with OK/Success.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK writes an endpoint-specific 200 body as-is.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Success writes the bare {"success":true} body.
func Success(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BadRequest writes a 400 with a human-readable message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: message})
}

// ServerError writes a 5xx without leaking internal detail.
func ServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, Envelope{Success: false, Error: "internal error"})
}

// AppError maps an application error to its HTTP status. Validation and
// business errors carry their message; infrastructure errors do not.
func AppError(c *gin.Context, appErr *errors.AppError) {
	if appErr.Code.IsClientError() {
		BadRequest(c, appErr.Message)
		return
	}
	switch appErr.Code {
	case errors.ErrCodeTimeout:
		c.JSON(http.StatusGatewayTimeout, Envelope{Success: false, Error: "request timed out"})
	default:
		ServerError(c)
	}
}
