package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type bindTarget struct {
	Name  string `json:"name" binding:"required"`
	Count int    `json:"count" binding:"min=1"`
}

func newContext(method, target, body string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"a","count":2}`, ""},
		{"validation failure", `{"count":0}`, "Name failed required"},
		{"malformed", `{"name":`, "malformed request body"},
		{"empty", "", "request body is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target bindTarget
			err := BindJSON(newContext(http.MethodPost, "/", tt.body), &target)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "a", target.Name)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.ErrBadRequest, errors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUserID(t *testing.T) {
	c := newContext(http.MethodGet, "/", "")
	c.Params = gin.Params{{Key: UserIDParam, Value: "nope"}}
	_, err := UserID(c)
	assert.Equal(t, errors.ErrBadRequest, errors.CodeOf(err))

	c.Params = gin.Params{{Key: UserIDParam, Value: "3f1c6c1e-8a43-4a39-9f34-7f4a3c2f0b11"}}
	id, err := UserID(c)
	require.NoError(t, err)
	assert.Equal(t, "3f1c6c1e-8a43-4a39-9f34-7f4a3c2f0b11", id.String())
}

func TestLocale(t *testing.T) {
	c := newContext(http.MethodGet, "/?locale=en", "")
	assert.Equal(t, analytics.LocaleEN, Locale(c))

	c = newContext(http.MethodGet, "/", "")
	c.Request.Header.Set("Accept-Language", "en-US,en;q=0.9")
	assert.Equal(t, analytics.LocaleEN, Locale(c))

	c = newContext(http.MethodGet, "/", "")
	assert.Equal(t, analytics.DefaultLocale, Locale(c))
}
