package profile

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/handler"
	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/service/health"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/httputil"
)

const defaultMetricDays = 30

type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*health.Profile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, raw model.RawProfile) (*health.Profile, error)
	ListAnalyses(ctx context.Context, userID uuid.UUID) ([]model.AnalysisRecord, error)
	CreateAnalysis(ctx context.Context, userID uuid.UUID, req *model.CreateAnalysisRequest) (*model.AnalysisRecord, error)
	RecordMetric(ctx context.Context, userID uuid.UUID, req *model.RecordMetricRequest) (*model.DailyMetric, error)
	ListMetrics(ctx context.Context, userID uuid.UUID, days int) ([]model.DailyMetric, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts on a group already scoped to /users/:userId
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpsertProfile)

	r.GET("/analyses", h.ListAnalyses)
	r.POST("/analyses", h.CreateAnalysis)

	r.GET("/metrics", h.ListMetrics)
	r.POST("/metrics", h.RecordMetric)
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) UpsertProfile(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.UpsertProfileRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	profile, err := h.service.UpsertProfile(c.Request.Context(), userID, req.ProfileData)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) ListAnalyses(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	analyses, err := h.service.ListAnalyses(c.Request.Context(), userID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, analyses)
}

func (h *Handler) CreateAnalysis(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.CreateAnalysisRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	analysis, err := h.service.CreateAnalysis(c.Request.Context(), userID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, analysis)
}

func (h *Handler) RecordMetric(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.RecordMetricRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	metric, err := h.service.RecordMetric(c.Request.Context(), userID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, metric)
}

func (h *Handler) ListMetrics(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	days := defaultMetricDays
	if v := c.Query("days"); v != "" {
		if days, err = strconv.Atoi(v); err != nil {
			handler.Fail(c, errors.BadRequest("days must be an integer", err))
			return
		}
	}

	metrics, err := h.service.ListMetrics(c.Request.Context(), userID, days)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, metrics)
}
