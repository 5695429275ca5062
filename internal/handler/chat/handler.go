package chat

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/handler"
	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/pkg/httputil"
)

type Service interface {
	SendMessage(ctx context.Context, userID uuid.UUID, req *model.SendMessageRequest) (*model.SendMessageResponse, error)
	Usage(ctx context.Context, userID uuid.UUID) (*model.ChatUsage, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]model.ChatRecord, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts on a group already scoped to /users/:userId
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	chat := r.Group("/chat")
	{
		chat.GET("", h.ListChats)
		chat.POST("/messages", h.SendMessage)
		chat.GET("/usage", h.Usage)
	}
}

func (h *Handler) SendMessage(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.SendMessageRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	resp, err := h.service.SendMessage(c.Request.Context(), userID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) Usage(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	usage, err := h.service.Usage(c.Request.Context(), userID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, usage)
}

func (h *Handler) ListChats(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	chats, err := h.service.ListChats(c.Request.Context(), userID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, chats)
}
