package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/pkg/errors"
)

type fakeService struct {
	snapshot  *model.CachedAnalytics
	err       error
	generated int
	locale    core.Locale
}

func (f *fakeService) Get(_ context.Context, userID uuid.UUID) (*model.CachedAnalytics, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.snapshot
	s.UserID = userID
	return &s, nil
}

func (f *fakeService) Generate(ctx context.Context, userID uuid.UUID) (*model.CachedAnalytics, error) {
	f.generated++
	return f.Get(ctx, userID)
}

func (f *fakeService) Recommendations(_ context.Context, _ uuid.UUID, locale core.Locale) (*model.Recommendations, error) {
	f.locale = locale
	if f.err != nil {
		return nil, f.err
	}
	return &model.Recommendations{Items: []model.Recommendation{{Title: "Quit smoking", Priority: "high"}}, Fallback: true}, nil
}

func testSnapshot() *model.CachedAnalytics {
	return &model.CachedAnalytics{
		HealthScore: 60,
		ScoreSource: model.ScoreSourceHeuristic,
		RiskLevel:   model.RiskModerate,
		Adjustments: []model.Adjustment{{Factor: model.FactorSmoking, Band: "regular", Delta: -10}},
	}
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/users/:userId"))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, r *gin.Engine, method, path string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestGetAnalytics_LocalizesExplanation(t *testing.T) {
	r := setupRouter(&fakeService{snapshot: testSnapshot()})
	userID := uuid.New()

	tests := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{"default russian", nil, "курит регулярно (-10)"},
		{"english header", map[string]string{"Accept-Language": "en-US,en;q=0.8"}, "regular smoker (-10)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, r, http.MethodGet, fmt.Sprintf("/users/%s/analytics", userID), tt.header)
			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, body.Success)

			var snapshot model.CachedAnalytics
			require.NoError(t, json.Unmarshal(body.Data, &snapshot))
			assert.Equal(t, userID, snapshot.UserID)
			assert.Contains(t, snapshot.HealthScoreExplanation, tt.want)
		})
	}
}

func TestGetAnalytics_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"bad user id", "/users/nope/analytics", nil, http.StatusBadRequest},
		{"not found", "/users/" + uuid.NewString() + "/analytics", errors.NotFound("health profile", nil), http.StatusNotFound},
		{"timeout", "/users/" + uuid.NewString() + "/analytics", errors.Timeout("analytics generation", nil), http.StatusGatewayTimeout},
		{"unexpected", "/users/" + uuid.NewString() + "/analytics", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(&fakeService{snapshot: testSnapshot(), err: tt.err})
			w, body := do(t, r, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestRefreshAnalytics(t *testing.T) {
	svc := &fakeService{snapshot: testSnapshot()}
	r := setupRouter(svc)

	w, body := do(t, r, http.MethodPost, "/users/"+uuid.NewString()+"/analytics/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Equal(t, 1, svc.generated)
}

func TestGetRecommendations(t *testing.T) {
	svc := &fakeService{snapshot: testSnapshot()}
	r := setupRouter(svc)

	w, body := do(t, r, http.MethodGet, "/users/"+uuid.NewString()+"/analytics/recommendations?locale=en", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, core.LocaleEN, svc.locale)

	var recs model.Recommendations
	require.NoError(t, json.Unmarshal(body.Data, &recs))
	assert.True(t, recs.Fallback)
	require.Len(t, recs.Items, 1)
	assert.Equal(t, "high", recs.Items[0].Priority)
}
