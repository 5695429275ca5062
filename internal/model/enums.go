package model

import (
	"encoding/json"
	"strings"
)

// SmokingStatus is the canonical smoking habit of a profile
type SmokingStatus string

const (
	SmokingUnknown    SmokingStatus = ""
	SmokingNever      SmokingStatus = "never"
	SmokingFormer     SmokingStatus = "former"
	SmokingOccasional SmokingStatus = "occasional"
	SmokingRegular    SmokingStatus = "regular"
)

// ActivityLevel is the canonical physical activity level of a profile
type ActivityLevel string

const (
	ActivityUnknown   ActivityLevel = ""
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLow       ActivityLevel = "low"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityHigh      ActivityLevel = "high"
)

// AlcoholConsumption is the canonical drinking habit of a profile
type AlcoholConsumption string

const (
	AlcoholUnknown  AlcoholConsumption = ""
	AlcoholNone     AlcoholConsumption = "none"
	AlcoholRare     AlcoholConsumption = "rare"
	AlcoholModerate AlcoholConsumption = "moderate"
	AlcoholFrequent AlcoholConsumption = "frequent"
)

// BiomarkerStatus is the categorical lab status attached to a biomarker reading
type BiomarkerStatus string

const (
	StatusUnknown    BiomarkerStatus = "unknown"
	StatusOptimal    BiomarkerStatus = "optimal"
	StatusGood       BiomarkerStatus = "good"
	StatusNormal     BiomarkerStatus = "normal"
	StatusConcerning BiomarkerStatus = "concerning"
	StatusWarning    BiomarkerStatus = "warning"
	StatusCritical   BiomarkerStatus = "critical"
	StatusHigh       BiomarkerStatus = "high"
	StatusLow        BiomarkerStatus = "low"
)

// RiskLevel is the four-tier classification derived from the health score
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ScoreSource tells which path produced a health score
type ScoreSource string

const (
	ScoreSourceExternal  ScoreSource = "external"
	ScoreSourceHeuristic ScoreSource = "heuristic"
)

var smokingAliases = map[string]SmokingStatus{
	"never":             SmokingNever,
	"no":                SmokingNever,
	"non-smoker":        SmokingNever,
	"nonsmoker":         SmokingNever,
	"никогда":           SmokingNever,
	"не курю":           SmokingNever,
	"не курил":          SmokingNever,
	"former":            SmokingFormer,
	"quit":              SmokingFormer,
	"ex-smoker":         SmokingFormer,
	"бросил":            SmokingFormer,
	"бросила":           SmokingFormer,
	"бывший":            SmokingFormer,
	"бывший курильщик":  SmokingFormer,
	"occasional":        SmokingOccasional,
	"occasionally":      SmokingOccasional,
	"sometimes":         SmokingOccasional,
	"иногда":            SmokingOccasional,
	"изредка":           SmokingOccasional,
	"regular":           SmokingRegular,
	"regularly":         SmokingRegular,
	"daily":             SmokingRegular,
	"smoker":            SmokingRegular,
	"yes":               SmokingRegular,
	"регулярно":         SmokingRegular,
	"ежедневно":         SmokingRegular,
	"курю":              SmokingRegular,
	"курю регулярно":    SmokingRegular,
	"курю периодически": SmokingOccasional,
}

var activityAliases = map[string]ActivityLevel{
	"sedentary":      ActivitySedentary,
	"none":           ActivitySedentary,
	"сидячий":        ActivitySedentary,
	"малоподвижный":  ActivitySedentary,
	"минимальный":    ActivitySedentary,
	"low":            ActivityLow,
	"light":          ActivityLow,
	"низкий":         ActivityLow,
	"низкая":         ActivityLow,
	"легкий":         ActivityLow,
	"лёгкий":         ActivityLow,
	"moderate":       ActivityModerate,
	"medium":         ActivityModerate,
	"average":        ActivityModerate,
	"умеренный":      ActivityModerate,
	"умеренная":      ActivityModerate,
	"средний":        ActivityModerate,
	"средняя":        ActivityModerate,
	"high":           ActivityHigh,
	"active":         ActivityHigh,
	"very active":    ActivityHigh,
	"intense":        ActivityHigh,
	"высокий":        ActivityHigh,
	"высокая":        ActivityHigh,
	"интенсивный":    ActivityHigh,
	"очень активный": ActivityHigh,
}

var alcoholAliases = map[string]AlcoholConsumption{
	"none":       AlcoholNone,
	"never":      AlcoholNone,
	"no":         AlcoholNone,
	"нет":        AlcoholNone,
	"никогда":    AlcoholNone,
	"не пью":     AlcoholNone,
	"rare":       AlcoholRare,
	"rarely":     AlcoholRare,
	"occasional": AlcoholRare,
	"редко":      AlcoholRare,
	"иногда":     AlcoholRare,
	"moderate":   AlcoholModerate,
	"moderately": AlcoholModerate,
	"умеренно":   AlcoholModerate,
	"умеренное":  AlcoholModerate,
	"frequent":   AlcoholFrequent,
	"frequently": AlcoholFrequent,
	"often":      AlcoholFrequent,
	"daily":      AlcoholFrequent,
	"heavy":      AlcoholFrequent,
	"часто":      AlcoholFrequent,
	"регулярно":  AlcoholFrequent,
	"ежедневно":  AlcoholFrequent,
}

var statusAliases = map[string]BiomarkerStatus{
	"optimal":          StatusOptimal,
	"оптимальный":      StatusOptimal,
	"оптимально":       StatusOptimal,
	"good":             StatusGood,
	"хороший":          StatusGood,
	"хорошо":           StatusGood,
	"normal":           StatusNormal,
	"норма":            StatusNormal,
	"нормальный":       StatusNormal,
	"в норме":          StatusNormal,
	"concerning":       StatusConcerning,
	"attention":        StatusConcerning,
	"тревожный":        StatusConcerning,
	"требует внимания": StatusConcerning,
	"warning":          StatusWarning,
	"предупреждение":   StatusWarning,
	"critical":         StatusCritical,
	"критический":      StatusCritical,
	"критично":         StatusCritical,
	"high":             StatusHigh,
	"elevated":         StatusHigh,
	"повышен":          StatusHigh,
	"повышенный":       StatusHigh,
	"low":              StatusLow,
	"reduced":          StatusLow,
	"понижен":          StatusLow,
	"пониженный":       StatusLow,
}

func enumKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseSmokingStatus maps English or Russian input to the canonical value.
// Unrecognized input yields SmokingUnknown, which scores nothing.
func ParseSmokingStatus(s string) SmokingStatus {
	return smokingAliases[enumKey(s)]
}

// ParseActivityLevel maps English or Russian input to the canonical value.
func ParseActivityLevel(s string) ActivityLevel {
	return activityAliases[enumKey(s)]
}

// ParseAlcoholConsumption maps English or Russian input to the canonical value.
func ParseAlcoholConsumption(s string) AlcoholConsumption {
	return alcoholAliases[enumKey(s)]
}

// ParseBiomarkerStatus maps lab status text to the canonical value, StatusUnknown otherwise.
func ParseBiomarkerStatus(s string) BiomarkerStatus {
	if st, ok := statusAliases[enumKey(s)]; ok {
		return st
	}
	return StatusUnknown
}

// IsFavorable reports optimal or good readings.
func (s BiomarkerStatus) IsFavorable() bool {
	return s == StatusOptimal || s == StatusGood
}

// IsSevere reports concerning or critical readings.
func (s BiomarkerStatus) IsSevere() bool {
	return s == StatusConcerning || s == StatusCritical
}

func (s *BiomarkerStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StatusUnknown
		return nil
	}
	*s = ParseBiomarkerStatus(raw)
	return nil
}
