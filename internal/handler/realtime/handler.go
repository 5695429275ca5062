package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/handler"
	"github.com/jwalitptl/health-analytics/internal/middleware"
	"github.com/jwalitptl/health-analytics/internal/realtime"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/httputil"
)

type Manager interface {
	Start(userID uuid.UUID, email string) (*realtime.Status, error)
	Stop(userID uuid.UUID) bool
	Status(userID uuid.UUID) (*realtime.Status, bool)
}

type Handler struct {
	manager Manager
}

func NewHandler(manager Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts on a group already scoped to /users/:userId
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	rt := r.Group("/realtime")
	{
		rt.GET("", h.GetStatus)
		rt.POST("", h.Start)
		rt.DELETE("", h.Stop)
	}
}

// Start subscribes the user to analytics regeneration on every change of their data
func (h *Handler) Start(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	status, err := h.manager.Start(userID, middleware.UserEmail(c))
	if err != nil {
		handler.Fail(c, errors.Unavailable("realtime", err))
		return
	}
	httputil.RespondWithStatus(c, http.StatusAccepted, status)
}

func (h *Handler) Stop(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	if !h.manager.Stop(userID) {
		handler.Fail(c, errors.NotFound("realtime subscription", nil))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetStatus(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	status, ok := h.manager.Status(userID)
	if !ok {
		handler.Fail(c, errors.NotFound("realtime subscription", nil))
		return
	}
	httputil.RespondWithSuccess(c, status)
}
