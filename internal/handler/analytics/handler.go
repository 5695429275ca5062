package analytics

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	core "github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/internal/handler"
	"github.com/jwalitptl/health-analytics/internal/model"
	service "github.com/jwalitptl/health-analytics/internal/service/analytics"
	"github.com/jwalitptl/health-analytics/pkg/httputil"
)

// Service is the part of the analytics service the handler needs
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.CachedAnalytics, error)
	Generate(ctx context.Context, userID uuid.UUID) (*model.CachedAnalytics, error)
	Recommendations(ctx context.Context, userID uuid.UUID, locale core.Locale) (*model.Recommendations, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts on a group already scoped to /users/:userId
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	analytics := r.Group("/analytics")
	{
		analytics.GET("", h.GetAnalytics)
		analytics.POST("/refresh", h.RefreshAnalytics)
		analytics.GET("/recommendations", h.GetRecommendations)
	}
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	snapshot, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, service.Localize(snapshot, handler.Locale(c)))
}

// RefreshAnalytics recomputes synchronously. Concurrent refreshes share one computation.
func (h *Handler) RefreshAnalytics(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	snapshot, err := h.service.Generate(c.Request.Context(), userID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, service.Localize(snapshot, handler.Locale(c)))
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	recs, err := h.service.Recommendations(c.Request.Context(), userID, handler.Locale(c))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusOK, recs)
}
