package analytics

import (
	"sort"
	"time"

	"github.com/jwalitptl/health-analytics/internal/model"
)

// Trend is the bucket a single biomarker series falls into
type Trend string

const (
	TrendImproving  Trend = "improving"
	TrendStable     Trend = "stable"
	TrendConcerning Trend = "concerning"
)

type reading struct {
	status model.BiomarkerStatus
	at     time.Time
}

// BiomarkerTrends classifies every distinct biomarker observed across analyses.
// The key is the canonical name produced by names.
func BiomarkerTrends(analyses []model.AnalysisRecord, names *NameNormalizer) map[string]Trend {
	series := make(map[string][]reading)
	for _, a := range analyses {
		for _, b := range a.Biomarkers {
			key := names.Canonical(b.Name)
			if key == "" {
				continue
			}
			series[key] = append(series[key], reading{status: b.Status, at: a.CreatedAt})
		}
	}

	out := make(map[string]Trend, len(series))
	for key, readings := range series {
		sort.SliceStable(readings, func(i, j int) bool {
			return readings[i].at.Before(readings[j].at)
		})
		out[key] = classify(readings)
	}
	return out
}

// classify favors current severity over trajectory: only a favorable reading
// that directly follows a severe one counts as improving.
func classify(readings []reading) Trend {
	latest := readings[len(readings)-1].status
	if latest.IsSevere() {
		return TrendConcerning
	}
	if len(readings) >= 2 {
		prev := readings[len(readings)-2].status
		if latest.IsFavorable() && prev.IsSevere() {
			return TrendImproving
		}
	}
	return TrendStable
}

// AnalyzeTrends counts biomarkers per trend bucket. The counts always sum to
// the number of distinct canonical names.
func AnalyzeTrends(analyses []model.AnalysisRecord, names *NameNormalizer) model.TrendCounts {
	var counts model.TrendCounts
	for _, t := range BiomarkerTrends(analyses, names) {
		switch t {
		case TrendImproving:
			counts.Improving++
		case TrendConcerning:
			counts.Concerning++
		default:
			counts.Stable++
		}
	}
	return counts
}
