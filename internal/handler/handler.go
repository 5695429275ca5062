package handler

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/httputil"
)

// UserIDParam is the path parameter every per-user route carries
const UserIDParam = "userId"

// UserID parses :userId. The owner middleware already rejected malformed values on
// protected routes; this guards handlers mounted without it.
func UserID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(UserIDParam))
	if err != nil {
		return uuid.Nil, errors.BadRequest("invalid user id", err)
	}
	return id, nil
}

// BindJSON decodes and validates the request body, reporting failed fields in a BadRequest
func BindJSON(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return errors.BadRequest("invalid request: "+strings.Join(fields, "; "), err)
	}
	if stderrors.Is(err, io.EOF) {
		return errors.BadRequest("request body is required", err)
	}
	return errors.BadRequest("malformed request body", err)
}

// Locale picks the explanation language from ?locale= or Accept-Language
func Locale(c *gin.Context) analytics.Locale {
	if l := c.Query("locale"); l != "" {
		return analytics.ParseLocale(l)
	}
	return analytics.ParseLocale(c.GetHeader("Accept-Language"))
}

// Fail writes err through the error taxonomy
func Fail(c *gin.Context, err error) {
	httputil.RespondWithError(c, err)
}
