package model

import (
	"encoding/json"
	"fmt"
)

// Defaults applied when a profile field is absent or malformed
const (
	DefaultAgeYears    = 30
	DefaultHeightCM    = 170.0
	DefaultWeightKG    = 70.0
	DefaultSleepHours  = 7.0
	DefaultStressLevel = 5.0
)

// RawProfile is the user-editable profile document as stored in health_profiles.profile_data.
// Values may be scalars, arrays, or {"value", "customValue"} wrapper objects.
type RawProfile map[string]interface{}

// HealthProfileRecord is one row of health_profiles
type HealthProfileRecord struct {
	Base
	ProfileData json.RawMessage `db:"profile_data" json:"profile_data"`
}

// Raw decodes the stored profile document. An empty column yields an empty profile.
func (r *HealthProfileRecord) Raw() (RawProfile, error) {
	raw := RawProfile{}
	if len(r.ProfileData) == 0 || string(r.ProfileData) == "null" {
		return raw, nil
	}
	if err := json.Unmarshal(r.ProfileData, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile data: %w", err)
	}
	return raw, nil
}

type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// HealthProfile is the flattened, typed profile consumed by scoring.
// Optional measurements are nil when the user never entered them.
type HealthProfile struct {
	Age               int                `json:"age"`
	Gender            string             `json:"gender,omitempty"`
	HeightCM          float64            `json:"height"`
	WeightKG          float64            `json:"weight"`
	Smoking           SmokingStatus      `json:"smoking_status"`
	Activity          ActivityLevel      `json:"physical_activity"`
	ExerciseFrequency float64            `json:"exercise_frequency"`
	SleepHours        float64            `json:"sleep_hours"`
	StressLevel       float64            `json:"stress_level"`
	Alcohol           AlcoholConsumption `json:"alcohol_consumption"`
	WaterIntake       float64            `json:"water_intake"`
	MentalHealthScore *float64           `json:"mental_health_score,omitempty"`
	RestingHeartRate  *float64           `json:"resting_heart_rate,omitempty"`
	BloodPressure     *BloodPressure     `json:"blood_pressure,omitempty"`
	MedicalConditions []string           `json:"medical_conditions"`
	FamilyHistory     []string           `json:"family_history"`
	Allergies         []string           `json:"allergies"`
	Medications       []string           `json:"medications"`
}

// BMI returns weight/(height in meters)^2, or 0 when height is not positive.
func (p HealthProfile) BMI() float64 {
	if p.HeightCM <= 0 {
		return 0
	}
	m := p.HeightCM / 100
	return p.WeightKG / (m * m)
}

// UpsertProfileRequest is the body of PUT /users/:userId/profile
type UpsertProfileRequest struct {
	ProfileData RawProfile `json:"profile_data" binding:"required"`
}
