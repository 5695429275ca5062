package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-analytics/internal/model"
)

func TestNormalizeRaw(t *testing.T) {
	raw := model.RawProfile{
		"smoking_status": map[string]interface{}{"value": "other", "customValue": "бросил"},
		"activity_level": map[string]interface{}{"value": "moderate", "customValue": ""},
		"allergies": []interface{}{
			map[string]interface{}{"value": "pollen"},
			"",
			nil,
			map[string]interface{}{"value": "other", "customValue": "cats"},
			false,
		},
		"weight": 82.5,
	}

	flat := NormalizeRaw(raw)

	assert.Equal(t, "бросил", flat["smoking_status"])
	assert.Equal(t, "moderate", flat["activity_level"])
	assert.Equal(t, []interface{}{"pollen", "cats"}, flat["allergies"])
	assert.Equal(t, 82.5, flat["weight"])
}

func TestNormalizeRaw_PlainObjectPassesThrough(t *testing.T) {
	bp := map[string]interface{}{"systolic": 120.0, "diastolic": 80.0}

	flat := NormalizeRaw(model.RawProfile{"blood_pressure": bp})

	assert.Equal(t, bp, flat["blood_pressure"])
}

func TestNormalizeRaw_FlatInputUnchanged(t *testing.T) {
	flat := model.RawProfile{
		"age":                30.0,
		"gender":             "female",
		"sleep_hours":        "7.5",
		"medical_conditions": []interface{}{"asthma"},
		"smoker":             true,
	}

	assert.Equal(t, flat, NormalizeRaw(flat))

	once := NormalizeRaw(model.RawProfile{
		"smoking_status": map[string]interface{}{"value": "other", "customValue": "иногда"},
	})
	assert.Equal(t, once, NormalizeRaw(once))
}

func TestParseProfile_Defaults(t *testing.T) {
	p := ParseProfile(model.RawProfile{}, time.Now())

	assert.Equal(t, model.DefaultAgeYears, p.Age)
	assert.Equal(t, model.DefaultHeightCM, p.HeightCM)
	assert.Equal(t, model.DefaultWeightKG, p.WeightKG)
	assert.Equal(t, model.DefaultSleepHours, p.SleepHours)
	assert.Equal(t, model.DefaultStressLevel, p.StressLevel)
	assert.Equal(t, model.SmokingUnknown, p.Smoking)
	assert.Nil(t, p.MentalHealthScore)
	assert.Nil(t, p.RestingHeartRate)
	assert.Nil(t, p.BloodPressure)
	assert.Empty(t, p.MedicalConditions)
}

func TestParseProfile_MalformedValuesFallBack(t *testing.T) {
	p := ParseProfile(model.RawProfile{
		"weight":             "heavy",
		"height":             -10.0,
		"stress_level":       15.0,
		"resting_heart_rate": 900.0,
		"date_of_birth":      "not a date",
	}, time.Now())

	assert.Equal(t, model.DefaultWeightKG, p.WeightKG)
	assert.Equal(t, model.DefaultHeightCM, p.HeightCM)
	assert.Equal(t, 10.0, p.StressLevel)
	assert.Nil(t, p.RestingHeartRate)
	assert.Equal(t, model.DefaultAgeYears, p.Age)
}

func TestParseProfile_Fields(t *testing.T) {
	now := time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)
	p := ParseProfile(model.RawProfile{
		"date_of_birth":       "1990-06-15",
		"height":              "175,5",
		"weight":              70.0,
		"smoking_status":      map[string]interface{}{"value": "other", "customValue": "Никогда"},
		"physical_activity":   "Высокий",
		"alcohol_consumption": "rarely",
		"mental_health_score": 70.0,
		"blood_pressure":      "125/82",
		"medical_conditions":  "астма; гипертония",
		"medications":         []interface{}{"metformin"},
	}, now)

	assert.Equal(t, 33, p.Age)
	assert.Equal(t, 175.5, p.HeightCM)
	assert.Equal(t, model.SmokingNever, p.Smoking)
	assert.Equal(t, model.ActivityHigh, p.Activity)
	assert.Equal(t, model.AlcoholRare, p.Alcohol)
	require.NotNil(t, p.MentalHealthScore)
	assert.Equal(t, 70.0, *p.MentalHealthScore)
	require.NotNil(t, p.BloodPressure)
	assert.Equal(t, model.BloodPressure{Systolic: 125, Diastolic: 82}, *p.BloodPressure)
	assert.Equal(t, []string{"астма", "гипертония"}, p.MedicalConditions)
	assert.Equal(t, []string{"metformin"}, p.Medications)
}

func TestParseProfile_BloodPressureObject(t *testing.T) {
	p := ParseProfile(model.RawProfile{
		"blood_pressure": map[string]interface{}{"systolic": 118.0, "diastolic": 76.0},
	}, time.Now())

	require.NotNil(t, p.BloodPressure)
	assert.Equal(t, 118.0, p.BloodPressure.Systolic)
	assert.Equal(t, 76.0, p.BloodPressure.Diastolic)
}
