package analytics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/health-analytics/internal/model"
)

func TestExplain_UsesSameAdjustments(t *testing.T) {
	p := ParseProfile(scenarioProfile(), time.Now())
	res := NewCalculator(nil, nil).Score(context.Background(), uuid.Nil, p, nil)

	text := Explain(res, LocaleRU)

	assert.True(t, strings.HasPrefix(text, "Базовый балл 85"))
	assert.Contains(t, text, "умеренный стресс 4-5 (0)")
	assert.Contains(t, text, "оптимальный сон 8 ч (+5)")
	assert.Contains(t, text, "нормальный ИМТ 22.9 (+8)")
	assert.True(t, strings.HasSuffix(text, "Итоговый балл: 100"))
	// one phrase per adjustment plus the opening and closing sentences
	assert.Len(t, strings.Split(text, "; "), len(res.Adjustments)+2)
}

func TestExplain_English(t *testing.T) {
	res := model.ScoreResult{
		Value:  61,
		Source: model.ScoreSourceHeuristic,
		Adjustments: []model.Adjustment{
			{Factor: model.FactorSmoking, Band: "regular", Delta: -20},
			{Factor: model.FactorSleep, Band: "short", Value: 5, Delta: -12},
		},
	}

	text := Explain(res, LocaleEN)

	assert.Equal(t, "Base score 85; regular smoker (-20); sleep deficit 5h (-12); Final score: 61", text)
}

func TestExplain_ExternalSource(t *testing.T) {
	res := model.ScoreResult{
		Value:  73.5,
		Source: model.ScoreSourceExternal,
		Adjustments: []model.Adjustment{
			{Factor: model.FactorStress, Band: "low", Value: 2, Delta: 3},
		},
	}

	text := Explain(res, LocaleEN)

	assert.Equal(t, "Score 73.5 comes from the dynamic calculation. Profile factors; low stress 1-3 (+3)", text)
}

func TestExplain_UnknownLocaleFallsBackToRussian(t *testing.T) {
	res := model.ScoreResult{Value: 85, Source: model.ScoreSourceHeuristic}

	assert.Equal(t, "Базовый балл 85; Итоговый балл: 85", Explain(res, Locale("de")))
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, LocaleEN, ParseLocale("en"))
	assert.Equal(t, LocaleEN, ParseLocale("en-US,en;q=0.9"))
	assert.Equal(t, LocaleRU, ParseLocale("ru_RU"))
	assert.Equal(t, LocaleEN, ParseLocale("de-DE, en;q=0.5"))
	assert.Equal(t, DefaultLocale, ParseLocale(""))
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "0", formatDelta(0))
	assert.Equal(t, "+5", formatDelta(5))
	assert.Equal(t, "-12", formatDelta(-12))
	assert.Equal(t, "+12.8", formatDelta(12.8))
}
