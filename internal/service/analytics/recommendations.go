package analytics

import (
	"context"

	"github.com/google/uuid"

	core "github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/pkg/edge"
)

type recommendationsRequest struct {
	UserID    uuid.UUID              `json:"user_id"`
	Locale    core.Locale            `json:"locale"`
	Analytics *model.CachedAnalytics `json:"analytics"`
}

type recommendationsResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
}

// Recommendations asks the AI backend for advice on the user's current analytics.
// Backend errors, timeouts and empty answers all yield the local fallback instead.
func (s *Service) Recommendations(ctx context.Context, userID uuid.UUID, locale core.Locale) (*model.Recommendations, error) {
	snapshot, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RecommendationsTimeout)
	defer cancel()

	var resp recommendationsResponse
	err = s.edge.Invoke(callCtx, edge.FunctionRecommendations, recommendationsRequest{
		UserID:    userID,
		Locale:    locale,
		Analytics: snapshot,
	}, &resp)
	if err == nil && len(resp.Recommendations) > 0 {
		return &model.Recommendations{Items: resp.Recommendations}, nil
	}

	if err != nil {
		s.logger.WithContext(ctx).Warn("Using fallback recommendations", "user_id", userID.String(), "error", err.Error())
	}
	fallback := core.FallbackRecommendations(snapshot.Adjustments, locale)
	return &fallback, nil
}

// Localize re-renders the explanation of a snapshot for locale
func Localize(snapshot *model.CachedAnalytics, locale core.Locale) *model.CachedAnalytics {
	out := *snapshot
	out.HealthScoreExplanation = core.Explain(model.ScoreResult{
		Value:       snapshot.HealthScore,
		Source:      snapshot.ScoreSource,
		Adjustments: snapshot.Adjustments,
	}, locale)
	return &out
}
