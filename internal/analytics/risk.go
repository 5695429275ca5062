package analytics

import "github.com/jwalitptl/health-analytics/internal/model"

// RiskFromScore thresholds a health score into a risk tier.
func RiskFromScore(score float64) model.RiskLevel {
	switch {
	case score >= 80:
		return model.RiskLow
	case score >= 60:
		return model.RiskModerate
	case score >= 40:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}
