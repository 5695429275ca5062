package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/health-analytics/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error. Message is localized for the caller; Detail is the developer text.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response localized by the Accept-Language header
func RespondWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(ErrorStatus(err), ErrorBody(c, err))
}

// ErrorStatus returns the HTTP status for err, 500 for errors outside the AppError taxonomy
func ErrorStatus(err error) int {
	if appErr, ok := errors.As(err); ok {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}

func ErrorBody(c *gin.Context, err error) Response {
	status := ErrorStatus(err)
	body := &Error{
		Code:    status,
		Message: errors.Localize(err, Language(c)),
		TraceID: c.GetString("request_id"),
	}
	if appErr, ok := errors.As(err); ok && status < http.StatusInternalServerError {
		body.Detail = appErr.Message
	}
	return Response{Success: false, Error: body}
}

// Language returns the primary language tag of the request
func Language(c *gin.Context) string {
	lang := c.GetHeader("Accept-Language")
	for i, r := range lang {
		if r == ',' || r == ';' || r == '-' || r == '_' {
			return lang[:i]
		}
	}
	return lang
}
