package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Biomarker is a single named lab measurement
type Biomarker struct {
	Name   string          `json:"name"`
	Value  json.RawMessage `json:"value,omitempty"`
	Unit   string          `json:"unit,omitempty"`
	Status BiomarkerStatus `json:"status"`
}

// AnalysisRecord is one uploaded lab report from medical_analyses.
// Markers live either in the biomarkers column or under results.markers.
type AnalysisRecord struct {
	Base
	AnalysisType   string          `db:"analysis_type" json:"analysis_type"`
	BiomarkersJSON json.RawMessage `db:"biomarkers" json:"-"`
	ResultsJSON    json.RawMessage `db:"results" json:"-"`
	Biomarkers     []Biomarker     `db:"-" json:"biomarkers"`
}

type analysisResults struct {
	Markers []Biomarker `json:"markers"`
}

// DecodeBiomarkers fills Biomarkers from the JSON columns.
func (a *AnalysisRecord) DecodeBiomarkers() error {
	if len(a.BiomarkersJSON) > 0 && string(a.BiomarkersJSON) != "null" {
		var markers []Biomarker
		if err := json.Unmarshal(a.BiomarkersJSON, &markers); err != nil {
			return fmt.Errorf("failed to unmarshal biomarkers: %w", err)
		}
		if len(markers) > 0 {
			a.Biomarkers = markers
			return nil
		}
	}

	if len(a.ResultsJSON) > 0 && string(a.ResultsJSON) != "null" {
		var results analysisResults
		if err := json.Unmarshal(a.ResultsJSON, &results); err != nil {
			return fmt.Errorf("failed to unmarshal results: %w", err)
		}
		a.Biomarkers = results.Markers
	}
	return nil
}

// BiomarkerInput is one marker of a CreateAnalysisRequest
type BiomarkerInput struct {
	Name   string          `json:"name" binding:"required,max=200"`
	Value  json.RawMessage `json:"value"`
	Unit   string          `json:"unit" binding:"max=50"`
	Status string          `json:"status" binding:"max=50"`
}

// CreateAnalysisRequest is the body of POST /users/:userId/analyses
type CreateAnalysisRequest struct {
	AnalysisType string           `json:"analysis_type" binding:"required,max=100"`
	Biomarkers   []BiomarkerInput `json:"biomarkers" binding:"required,min=1,max=500,dive"`
}

// DailyMetric is one row of daily_health_metrics
type DailyMetric struct {
	Base
	MetricDate time.Time       `db:"metric_date" json:"metric_date"`
	Data       json.RawMessage `db:"data" json:"data"`
}

// RecordMetricRequest is the body of POST /users/:userId/metrics
type RecordMetricRequest struct {
	MetricDate string          `json:"metric_date" binding:"required,datetime=2006-01-02"`
	Data       json.RawMessage `json:"data" binding:"required"`
}
