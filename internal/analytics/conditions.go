package analytics

import (
	"strings"
	"unicode"
)

// ConditionSeverity groups chronic conditions by their score penalty
type ConditionSeverity string

const (
	ConditionCritical ConditionSeverity = "critical"
	ConditionSevere   ConditionSeverity = "severe"
	ConditionOther    ConditionSeverity = "other"
)

const (
	criticalConditionPenalty = -20.0
	severeConditionPenalty   = -12.0
	otherConditionPenalty    = -5.0
	conditionsPenaltyFloor   = -30.0
)

var criticalConditionKeywords = []string{
	"diabetes", "диабет",
	"heart attack", "myocardial infarction", "инфаркт",
	"stroke", "инсульт",
	"cancer", "oncolog", "онколог",
}

var severeConditionKeywords = []string{
	"hypertension", "high blood pressure", "гипертон", "гипертензи",
	"asthma", "астм",
	"arthritis", "артрит",
}

// Stems matched only at the start of a word; "рак" also occurs inside "характер".
var criticalWordStems = []string{"рак"}

// Entries that mean "no conditions" rather than naming one.
var noConditionMarkers = map[string]bool{
	"none": true, "no": true, "n/a": true, "-": true,
	"нет": true, "отсутствуют": true, "не имею": true,
}

// ClassifyCondition returns the severity bucket of a free-text condition.
func ClassifyCondition(condition string) ConditionSeverity {
	c := fold(condition)
	if containsAny(c, criticalConditionKeywords) || startsWord(c, criticalWordStems) {
		return ConditionCritical
	}
	if containsAny(c, severeConditionKeywords) {
		return ConditionSevere
	}
	return ConditionOther
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// startsWord reports whether one of stems occurs at the start of a word in s
func startsWord(s string, stems []string) bool {
	for _, kw := range stems {
		idx := 0
		for {
			i := strings.Index(s[idx:], kw)
			if i < 0 {
				break
			}
			pos := idx + i
			if pos == 0 || !isLetterBefore(s, pos) {
				return true
			}
			idx = pos + len(kw)
		}
	}
	return false
}

func isLetterBefore(s string, pos int) bool {
	r := []rune(s[:pos])
	return len(r) > 0 && unicode.IsLetter(r[len(r)-1])
}

// conditionsPenalty sums per-condition penalties, floored at conditionsPenaltyFloor.
// It reports the number of counted conditions.
func conditionsPenalty(conditions []string) (float64, int) {
	var total float64
	var n int
	for _, c := range conditions {
		if strings.TrimSpace(c) == "" || noConditionMarkers[fold(c)] {
			continue
		}
		n++
		switch ClassifyCondition(c) {
		case ConditionCritical:
			total += criticalConditionPenalty
		case ConditionSevere:
			total += severeConditionPenalty
		default:
			total += otherConditionPenalty
		}
	}
	if total < conditionsPenaltyFloor {
		total = conditionsPenaltyFloor
	}
	return total, n
}
