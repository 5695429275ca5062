package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/health-analytics/internal/model"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02.01.2006",
}

// ParseProfile converts a raw profile document into the typed record used for scoring.
// It never fails: absent or malformed fields take the documented defaults.
func ParseProfile(raw model.RawProfile, now time.Time) model.HealthProfile {
	flat := NormalizeRaw(raw)

	p := model.HealthProfile{
		Age:               ageFrom(flat, now),
		Gender:            firstString(flat, "gender", "sex"),
		HeightCM:          positiveOr(flat, model.DefaultHeightCM, "height", "height_cm"),
		WeightKG:          positiveOr(flat, model.DefaultWeightKG, "weight", "weight_kg"),
		Smoking:           model.ParseSmokingStatus(firstString(flat, "smoking_status", "smoking")),
		Activity:          model.ParseActivityLevel(firstString(flat, "physical_activity", "activity_level", "exercise_level")),
		ExerciseFrequency: nonNegative(firstNumber(flat, "exercise_frequency", "exercise_per_week")),
		SleepHours:        positiveOr(flat, model.DefaultSleepHours, "sleep_hours", "sleep"),
		StressLevel:       stressFrom(flat),
		Alcohol:           model.ParseAlcoholConsumption(firstString(flat, "alcohol_consumption", "alcohol")),
		WaterIntake:       nonNegative(firstNumber(flat, "water_intake", "water_glasses")),
		MentalHealthScore: boundedPtr(flat, 0, 100, "mental_health_score", "mental_health"),
		RestingHeartRate:  boundedPtr(flat, 20, 250, "resting_heart_rate", "heart_rate"),
		BloodPressure:     bloodPressureFrom(flat),
		MedicalConditions: stringList(flat, "medical_conditions", "chronic_conditions"),
		FamilyHistory:     stringList(flat, "family_history"),
		Allergies:         stringList(flat, "allergies"),
		Medications:       stringList(flat, "medications", "current_medications"),
	}

	return p
}

func ageFrom(flat model.RawProfile, now time.Time) int {
	if dob, ok := firstDate(flat, "date_of_birth", "birth_date", "dateOfBirth"); ok && dob.Before(now) {
		years := now.Year() - dob.Year()
		if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
			years--
		}
		if years >= 0 && years < 130 {
			return years
		}
	}
	if n, ok := firstNumber(flat, "age"); ok && n > 0 && n < 130 {
		return int(n)
	}
	return model.DefaultAgeYears
}

func stressFrom(flat model.RawProfile) float64 {
	n, ok := firstNumber(flat, "stress_level", "stress")
	if !ok || n <= 0 {
		return model.DefaultStressLevel
	}
	return math.Min(n, 10)
}

func bloodPressureFrom(flat model.RawProfile) *model.BloodPressure {
	if v, ok := flat["blood_pressure"]; ok {
		switch t := v.(type) {
		case map[string]interface{}:
			sys, okS := toNumber(t["systolic"])
			dia, okD := toNumber(t["diastolic"])
			if okS && okD && sys > 0 && dia > 0 {
				return &model.BloodPressure{Systolic: sys, Diastolic: dia}
			}
		case string:
			parts := strings.Split(t, "/")
			if len(parts) == 2 {
				sys, okS := toNumber(parts[0])
				dia, okD := toNumber(parts[1])
				if okS && okD && sys > 0 && dia > 0 {
					return &model.BloodPressure{Systolic: sys, Diastolic: dia}
				}
			}
		}
	}

	sys, okS := firstNumber(flat, "blood_pressure_systolic", "systolic")
	dia, okD := firstNumber(flat, "blood_pressure_diastolic", "diastolic")
	if okS && okD && sys > 0 && dia > 0 {
		return &model.BloodPressure{Systolic: sys, Diastolic: dia}
	}
	return nil
}

func firstNumber(flat model.RawProfile, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := flat[k]; ok {
			if n, ok := toNumber(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func firstString(flat model.RawProfile, keys ...string) string {
	for _, k := range keys {
		if v, ok := flat[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func firstDate(flat model.RawProfile, keys ...string) (time.Time, bool) {
	s := firstString(flat, keys...)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringList(flat model.RawProfile, keys ...string) []string {
	for _, k := range keys {
		v, ok := flat[k]
		if !ok {
			continue
		}
		var items []string
		switch t := v.(type) {
		case []interface{}:
			for _, item := range t {
				if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
					items = append(items, s)
				}
			}
		case string:
			for _, part := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ';' }) {
				if s := strings.TrimSpace(part); s != "" {
					items = append(items, s)
				}
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return []string{}
}

func toNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func positiveOr(flat model.RawProfile, def float64, keys ...string) float64 {
	n, ok := firstNumber(flat, keys...)
	if !ok || n <= 0 {
		return def
	}
	return n
}

func nonNegative(n float64, ok bool) float64 {
	if !ok || n < 0 {
		return 0
	}
	return n
}

func boundedPtr(flat model.RawProfile, lo, hi float64, keys ...string) *float64 {
	n, ok := firstNumber(flat, keys...)
	if !ok || n < lo || n > hi {
		return nil
	}
	return &n
}
