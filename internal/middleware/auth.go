package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/pkg/auth"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/httputil"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"

	// UserIDParam is the path parameter owner checks compare against
	UserIDParam = "userId"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and stores the caller in the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthorized(fmt.Errorf("missing authorization header")))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, errors.Unauthorized(fmt.Errorf("invalid authorization format")))
			return
		}

		claims, err := m.jwt.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized(err))
			return
		}
		userID, _ := claims.UserID()

		c.Set(ContextUserID, userID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// RequireOwner rejects requests whose :userId differs from the authenticated caller
func (m *AuthMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := uuid.Parse(c.Param(UserIDParam))
		if err != nil {
			httputil.RespondWithError(c, errors.BadRequest("invalid user id", err))
			return
		}

		caller, ok := UserID(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized(fmt.Errorf("unauthenticated")))
			return
		}
		if caller != target {
			httputil.RespondWithError(c, errors.Forbidden(fmt.Errorf("user %s cannot access %s", caller, target)))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func UserEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}
