package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Factor names one scoring rule
type Factor string

const (
	FactorAge          Factor = "age"
	FactorActivity     Factor = "activity"
	FactorExercise     Factor = "exercise_frequency"
	FactorWater        Factor = "water_intake"
	FactorMentalHealth Factor = "mental_health"
	FactorHeartRate    Factor = "resting_heart_rate"
	FactorBloodPress   Factor = "blood_pressure"
	FactorSleep        Factor = "sleep"
	FactorStress       Factor = "stress"
	FactorSmoking      Factor = "smoking"
	FactorAlcohol      Factor = "alcohol"
	FactorConditions   Factor = "medical_conditions"
	FactorBMI          Factor = "bmi"
	FactorBiomarkers   Factor = "biomarkers"
	FactorAnalyses     Factor = "analyses"
)

// Adjustment is one signed contribution to the health score.
// Band identifies which branch of the rule fired; Value is the observed input.
type Adjustment struct {
	Factor Factor  `json:"factor"`
	Band   string  `json:"band"`
	Value  float64 `json:"value"`
	Delta  float64 `json:"delta"`
}

// ScoreResult is a health score together with the path that produced it
type ScoreResult struct {
	Value       float64      `json:"value"`
	Source      ScoreSource  `json:"source"`
	Adjustments []Adjustment `json:"adjustments,omitempty"`
}

// TrendCounts holds the number of distinct biomarkers per trend bucket
type TrendCounts struct {
	Improving  int `json:"improving"`
	Stable     int `json:"stable"`
	Concerning int `json:"concerning"`
}

// TrendsAnalysis mirrors TrendCounts under the field names the dashboard reads
type TrendsAnalysis struct {
	Improving     int `json:"improving"`
	Stable        int `json:"stable"`
	Deteriorating int `json:"deteriorating"`
}

// Activity is one entry of the recent activity feed
type Activity struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// CachedAnalytics is the persisted analytics snapshot of a user
type CachedAnalytics struct {
	UserID                 uuid.UUID      `json:"user_id"`
	HealthScore            float64        `json:"health_score"`
	ScoreSource            ScoreSource    `json:"score_source"`
	RiskLevel              RiskLevel      `json:"risk_level"`
	TotalAnalyses          int            `json:"total_analyses"`
	TotalConsultations     int            `json:"total_consultations"`
	BiomarkerTrends        TrendCounts    `json:"biomarker_trends"`
	RecentActivities       []Activity     `json:"recent_activities"`
	LastUpdated            time.Time      `json:"last_updated"`
	HealthScoreExplanation string         `json:"health_score_explanation"`
	HasRecentActivity      bool           `json:"has_recent_activity"`
	TrendsAnalysis         TrendsAnalysis `json:"trends_analysis"`
	Adjustments            []Adjustment   `json:"adjustments,omitempty"`
}

// AnalyticsRecord is one row of user_analytics
type AnalyticsRecord struct {
	UserID        uuid.UUID       `db:"user_id"`
	AnalyticsData json.RawMessage `db:"analytics_data"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Recommendation is one actionable suggestion shown next to analytics
type Recommendation struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
	Factor   Factor `json:"factor,omitempty"`
}

// Recommendations wraps recommendations with a flag telling whether they came from the
// local fallback instead of the AI backend
type Recommendations struct {
	Items    []Recommendation `json:"items"`
	Fallback bool             `json:"fallback"`
}
