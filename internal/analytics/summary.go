package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/model"
)

const (
	maxRecentActivities  = 5
	recentActivityWindow = 7 * 24 * time.Hour

	ActivityKindAnalysis     = "analysis"
	ActivityKindConsultation = "consultation"
)

// SummaryInput carries everything one analytics snapshot is built from
type SummaryInput struct {
	UserID      uuid.UUID
	Score       model.ScoreResult
	Trends      model.TrendCounts
	Explanation string
	Analyses    []model.AnalysisRecord
	Chats       []model.ChatRecord
	Now         time.Time
}

// Summarize assembles the cached analytics record.
func Summarize(in SummaryInput) model.CachedAnalytics {
	return model.CachedAnalytics{
		UserID:                 in.UserID,
		HealthScore:            in.Score.Value,
		ScoreSource:            in.Score.Source,
		RiskLevel:              RiskFromScore(in.Score.Value),
		TotalAnalyses:          len(in.Analyses),
		TotalConsultations:     len(in.Chats),
		BiomarkerTrends:        in.Trends,
		RecentActivities:       RecentActivities(in.Analyses, in.Chats),
		LastUpdated:            in.Now.UTC(),
		HealthScoreExplanation: in.Explanation,
		HasRecentActivity:      HasRecentActivity(in.Analyses, in.Now),
		TrendsAnalysis: model.TrendsAnalysis{
			Improving:     in.Trends.Improving,
			Stable:        in.Trends.Stable,
			Deteriorating: in.Trends.Concerning,
		},
		Adjustments: in.Score.Adjustments,
	}
}

// RecentActivities merges analyses and chats, newest first, capped at five entries.
func RecentActivities(analyses []model.AnalysisRecord, chats []model.ChatRecord) []model.Activity {
	out := make([]model.Activity, 0, len(analyses)+len(chats))
	for _, a := range analyses {
		out = append(out, model.Activity{Kind: ActivityKindAnalysis, Title: a.AnalysisType, CreatedAt: a.CreatedAt})
	}
	for _, c := range chats {
		out = append(out, model.Activity{Kind: ActivityKindConsultation, Title: c.Title, CreatedAt: c.CreatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > maxRecentActivities {
		out = out[:maxRecentActivities]
	}
	return out
}

// HasRecentActivity reports whether any analysis was created in the last seven days.
func HasRecentActivity(analyses []model.AnalysisRecord, now time.Time) bool {
	cutoff := now.Add(-recentActivityWindow)
	for _, a := range analyses {
		if a.CreatedAt.After(cutoff) {
			return true
		}
	}
	return false
}
