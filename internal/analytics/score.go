package analytics

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/pkg/logger"
)

const (
	BaseScore = 85.0
	MinScore  = 20.0
	MaxScore  = 100.0

	biomarkerScoreMin = -15.0
	biomarkerScoreMax = 20.0
	analysesBonusCap  = 10.0
)

// DynamicScorer is an externally maintained score calculation. ok is false when
// it has no opinion for the user.
type DynamicScorer interface {
	DynamicScore(ctx context.Context, userID uuid.UUID) (score float64, ok bool, err error)
}

// Calculator produces health scores, preferring the dynamic scorer when it yields a positive value.
type Calculator struct {
	dynamic DynamicScorer
	logger  *logger.Logger
}

func NewCalculator(dynamic DynamicScorer, log *logger.Logger) *Calculator {
	if log == nil {
		log = logger.Nop()
	}
	return &Calculator{dynamic: dynamic, logger: log}
}

// Score returns the health score of a user. Adjustments are always computed so the
// explanation can describe the profile even when the value came from outside.
func (c *Calculator) Score(ctx context.Context, userID uuid.UUID, p model.HealthProfile, analyses []model.AnalysisRecord) model.ScoreResult {
	adjs := Adjustments(p, analyses)

	if c.dynamic != nil {
		v, ok, err := c.dynamic.DynamicScore(ctx, userID)
		switch {
		case err != nil:
			c.logger.WithContext(ctx).Warn("dynamic score unavailable, using heuristic",
				"user_id", userID.String(), "error", err.Error())
		case ok && v > 0:
			return model.ScoreResult{
				Value:       round2(clamp(v, MinScore, MaxScore)),
				Source:      model.ScoreSourceExternal,
				Adjustments: adjs,
			}
		}
	}

	return model.ScoreResult{
		Value:       HeuristicScore(adjs),
		Source:      model.ScoreSourceHeuristic,
		Adjustments: adjs,
	}
}

// HeuristicScore is clamp(BaseScore + sum of deltas, MinScore, MaxScore) rounded to 2 decimals.
func HeuristicScore(adjs []model.Adjustment) float64 {
	total := BaseScore
	for _, a := range adjs {
		total += a.Delta
	}
	return round2(clamp(total, MinScore, MaxScore))
}

// Adjustments evaluates every scoring rule once, in a fixed order. Rules whose input
// is absent (optional measurements, unrecognized enums, no biomarkers) produce no entry.
func Adjustments(p model.HealthProfile, analyses []model.AnalysisRecord) []model.Adjustment {
	adjs := make([]model.Adjustment, 0, 16)
	add := func(f model.Factor, band string, value, delta float64) {
		adjs = append(adjs, model.Adjustment{Factor: f, Band: band, Value: value, Delta: delta})
	}

	band, delta := ageBand(p.Age)
	add(model.FactorAge, band, float64(p.Age), delta)

	if band, delta, ok := activityBand(p.Activity); ok {
		add(model.FactorActivity, band, 0, delta)
	}
	if band, delta, ok := exerciseBand(p.ExerciseFrequency); ok {
		add(model.FactorExercise, band, p.ExerciseFrequency, delta)
	}

	band, delta = waterBand(p.WaterIntake)
	add(model.FactorWater, band, p.WaterIntake, delta)

	if p.MentalHealthScore != nil {
		band, delta := mentalHealthBand(*p.MentalHealthScore)
		add(model.FactorMentalHealth, band, *p.MentalHealthScore, delta)
	}
	if p.RestingHeartRate != nil {
		band, delta := heartRateBand(*p.RestingHeartRate)
		add(model.FactorHeartRate, band, *p.RestingHeartRate, delta)
	}
	if p.BloodPressure != nil {
		band, delta := bloodPressureBand(*p.BloodPressure)
		add(model.FactorBloodPress, band, p.BloodPressure.Systolic, delta)
	}

	band, delta = sleepBand(p.SleepHours)
	add(model.FactorSleep, band, p.SleepHours, delta)

	band, delta = stressBand(p.StressLevel)
	add(model.FactorStress, band, p.StressLevel, delta)

	if band, delta, ok := smokingBand(p.Smoking); ok {
		add(model.FactorSmoking, band, 0, delta)
	}
	if band, delta, ok := alcoholBand(p.Alcohol); ok {
		add(model.FactorAlcohol, band, 0, delta)
	}

	penalty, n := conditionsPenalty(p.MedicalConditions)
	if n == 0 {
		add(model.FactorConditions, "none", 0, 0)
	} else {
		add(model.FactorConditions, "present", float64(n), penalty)
	}

	bmi := round1(p.BMI())
	band, delta = bmiBand(bmi)
	add(model.FactorBMI, band, bmi, delta)

	if total, delta, ok := biomarkerScore(analyses); ok {
		add(model.FactorBiomarkers, "panel", float64(total), delta)
	}
	if len(analyses) > 0 {
		add(model.FactorAnalyses, "present", float64(len(analyses)),
			math.Min(float64(len(analyses))*2, analysesBonusCap))
	}

	return adjs
}

func ageBand(age int) (string, float64) {
	switch {
	case age < 25:
		return "under_25", 5
	case age <= 35:
		return "25_35", 2
	case age <= 45:
		return "36_45", 0
	case age <= 55:
		return "46_55", -3
	case age <= 65:
		return "56_65", -6
	case age <= 75:
		return "66_75", -10
	default:
		return "over_75", -15
	}
}

func activityBand(a model.ActivityLevel) (string, float64, bool) {
	switch a {
	case model.ActivitySedentary:
		return string(a), -15, true
	case model.ActivityLow:
		return string(a), 3, true
	case model.ActivityModerate:
		return string(a), 8, true
	case model.ActivityHigh:
		return string(a), 12, true
	}
	return "", 0, false
}

func exerciseBand(perWeek float64) (string, float64, bool) {
	switch {
	case perWeek >= 5:
		return "5_plus", 3, true
	case perWeek >= 3:
		return "3_plus", 2, true
	case perWeek >= 1:
		return "1_plus", 1, true
	}
	return "", 0, false
}

func waterBand(glasses float64) (string, float64) {
	switch {
	case glasses >= 8:
		return "8_plus", 3
	case glasses >= 6:
		return "6_plus", 2
	case glasses >= 4:
		return "4_plus", 1
	default:
		return "low", 0
	}
}

func mentalHealthBand(score float64) (string, float64) {
	switch {
	case score >= 80:
		return "high", 4
	case score >= 60:
		return "good", 2
	case score >= 40:
		return "fair", 1
	default:
		return "low", -2
	}
}

func heartRateBand(bpm float64) (string, float64) {
	switch {
	case bpm >= 60 && bpm <= 70:
		return "optimal", 3
	case bpm >= 50 && bpm <= 80:
		return "normal", 2
	case bpm > 80 && bpm <= 90:
		return "elevated", 1
	default:
		return "abnormal", -1
	}
}

func bloodPressureBand(bp model.BloodPressure) (string, float64) {
	switch {
	case bp.Systolic >= 90 && bp.Systolic <= 120 && bp.Diastolic >= 60 && bp.Diastolic <= 80:
		return "optimal", 2
	case bp.Systolic <= 140 && bp.Diastolic <= 90:
		return "elevated", 1
	default:
		return "high", -2
	}
}

func sleepBand(hours float64) (string, float64) {
	switch {
	case hours >= 7 && hours <= 9:
		return "optimal", 5
	case hours < 6:
		return "short", -12
	case hours <= 10:
		return "acceptable", 0
	default:
		return "long", 0
	}
}

func stressBand(level float64) (string, float64) {
	switch {
	case level <= 3:
		return "low", 3
	case level <= 5:
		return "moderate", 0
	case level <= 8:
		return "elevated", -6
	default:
		return "high", -12
	}
}

func smokingBand(s model.SmokingStatus) (string, float64, bool) {
	switch s {
	case model.SmokingNever:
		return string(s), 2, true
	case model.SmokingFormer:
		return string(s), 0, true
	case model.SmokingOccasional:
		return string(s), -10, true
	case model.SmokingRegular:
		return string(s), -20, true
	}
	return "", 0, false
}

func alcoholBand(a model.AlcoholConsumption) (string, float64, bool) {
	switch a {
	case model.AlcoholNone, model.AlcoholRare:
		return string(a), 0, true
	case model.AlcoholModerate:
		return string(a), -3, true
	case model.AlcoholFrequent:
		return string(a), -15, true
	}
	return "", 0, false
}

// bmiBand uses the literal published ranges; values between them (17.9-18.5) fall to the default.
func bmiBand(bmi float64) (string, float64) {
	switch {
	case bmi >= 18.5 && bmi <= 24.9:
		return "normal", 8
	case bmi >= 25 && bmi <= 29.9:
		return "overweight", 3
	case bmi >= 17 && bmi <= 17.9:
		return "mild_underweight", 2
	case bmi >= 30 && bmi <= 34.9:
		return "obese", -3
	case bmi >= 35:
		return "severe_obese", -8
	default:
		return "underweight", -5
	}
}

// biomarkerScore pools all markers of all analyses. ok is false without markers.
func biomarkerScore(analyses []model.AnalysisRecord) (total int, delta float64, ok bool) {
	var optimal, concerning, critical int
	for _, a := range analyses {
		for _, b := range a.Biomarkers {
			total++
			switch b.Status {
			case model.StatusOptimal:
				optimal++
			case model.StatusConcerning:
				concerning++
			case model.StatusCritical:
				critical++
			}
		}
	}
	if total == 0 {
		return 0, 0, false
	}
	n := float64(total)
	delta = float64(optimal)/n*20 - float64(concerning)/n*10 - float64(critical)/n*15
	return total, clamp(delta, biomarkerScoreMin, biomarkerScoreMax), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
