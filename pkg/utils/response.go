package utils

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// RespondSuccess sends a standard success response
func RespondSuccess(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondError sends a standard error response. The internal error goes to
// the log, never to the client.
func RespondError(c *gin.Context, code int, message string, err error) {
	if err != nil && Logger != nil {
		Logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(code, APIResponse{
		Success: false,
		Message: message,
	})
}

// RespondValidationError sends a 400 with field-level details.
func RespondValidationError(c *gin.Context, errs interface{}) {
	c.JSON(400, APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}
