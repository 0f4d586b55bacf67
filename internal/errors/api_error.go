package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the JSON body of every non-2xx console response.
type APIError struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Machine-readable codes.
const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeWrongMode   = "wrong_mode"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal_error"
)

// NewAPIError creates a new APIError with the given message and optional details.
func NewAPIError(code, message string, details map[string]interface{}) *APIError {
	return &APIError{
		Error:   message,
		Code:    code,
		Details: details,
	}
}

func abort(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, NewAPIError(code, message, details))
}

// AbortWithBadRequest sends a 400 and aborts the request.
func AbortWithBadRequest(c *gin.Context, message string, details map[string]interface{}) {
	abort(c, http.StatusBadRequest, CodeValidation, message, details)
}

// AbortWithNotFound sends a 404 and aborts the request.
func AbortWithNotFound(c *gin.Context, message string, details map[string]interface{}) {
	abort(c, http.StatusNotFound, CodeNotFound, message, details)
}

// AbortWithConflict sends a 409 and aborts the request. Used when an action is
// not available in the session's current mode (web vs native).
func AbortWithConflict(c *gin.Context, message string, details map[string]interface{}) {
	abort(c, http.StatusConflict, CodeWrongMode, message, details)
}

// AbortWithUnavailable sends a 503 and aborts the request.
// Used when an action needs a collaborator (bridge, token store, FCM) that is not configured.
func AbortWithUnavailable(c *gin.Context, message string, details map[string]interface{}) {
	abort(c, http.StatusServiceUnavailable, CodeUnavailable, message, details)
}

// AbortWithInternal sends a 500 and aborts the request.
func AbortWithInternal(c *gin.Context, message string, details map[string]interface{}) {
	abort(c, http.StatusInternalServerError, CodeInternal, message, details)
}
