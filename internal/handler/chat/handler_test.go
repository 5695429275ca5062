package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/pkg/errors"
)

type fakeService struct {
	req *model.SendMessageRequest
	err error
}

func (f *fakeService) SendMessage(_ context.Context, _ uuid.UUID, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.SendMessageResponse{
		ChatID:    uuid.New(),
		Reply:     model.ChatMessage{Role: model.ChatRoleAssistant, Content: "Drink more water"},
		Remaining: 19,
	}, nil
}

func (f *fakeService) Usage(context.Context, uuid.UUID) (*model.ChatUsage, error) {
	return &model.ChatUsage{Date: "2024-03-01", Used: 3, Limit: 20, Remaining: 17}, f.err
}

func (f *fakeService) ListChats(context.Context, uuid.UUID) ([]model.ChatRecord, error) {
	return []model.ChatRecord{{Title: "Sleep"}}, f.err
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/users/:userId"))
	return r
}

func post(r *gin.Engine, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendMessage(t *testing.T) {
	svc := &fakeService{}
	w := post(setupRouter(svc), "/users/"+uuid.NewString()+"/chat/messages", `{"message":"How do I sleep better?"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "How do I sleep better?", svc.req.Message)

	var body struct {
		Data model.SendMessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 19, body.Data.Remaining)
	assert.Equal(t, "Drink more water", body.Data.Reply.Content)
}

func TestSendMessage_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{}`},
		{"bad chat id", `{"chat_id":"nope","message":"hi"}`},
		{"too long", `{"message":"` + strings.Repeat("a", 4001) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			w := post(setupRouter(svc), "/users/"+uuid.NewString()+"/chat/messages", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, svc.req)
		})
	}
}

func TestSendMessage_DailyLimitIsLocalized(t *testing.T) {
	svc := &fakeService{err: errors.TooManyRequests("daily message limit reached")}
	w := post(setupRouter(svc), "/users/"+uuid.NewString()+"/chat/messages", `{"message":"hi"}`,
		map[string]string{"Accept-Language": "en"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		Error struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Too many requests. Please try again later", body.Error.Message)
	assert.Equal(t, "daily message limit reached", body.Error.Detail)
}

func TestUsageAndList(t *testing.T) {
	r := setupRouter(&fakeService{})
	base := "/users/" + uuid.NewString() + "/chat"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"/usage", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":17`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Sleep"`)
}
