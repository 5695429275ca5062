package analytics

import "strings"

// Locale selects the language of user-facing text
type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleEN Locale = "en"

	DefaultLocale = LocaleRU
)

// ParseLocale accepts a bare tag ("en"), a region tag ("en-US") or an
// Accept-Language header and falls back to DefaultLocale.
func ParseLocale(s string) Locale {
	for _, part := range strings.Split(s, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.SplitN(strings.ReplaceAll(tag, "_", "-"), "-", 2)[0])
		switch Locale(tag) {
		case LocaleRU, LocaleEN:
			return Locale(tag)
		}
	}
	return DefaultLocale
}

type phrases map[string]string

// Keyed by factor.band. {v} is replaced with the observed value.
var factorPhrases = map[Locale]phrases{
	LocaleRU: {
		"age.under_25":                "возраст {v} лет, до 25",
		"age.25_35":                   "возраст {v} лет, 25-35",
		"age.36_45":                   "возраст {v} лет, 36-45",
		"age.46_55":                   "возраст {v} лет, 46-55",
		"age.56_65":                   "возраст {v} лет, 56-65",
		"age.66_75":                   "возраст {v} лет, 66-75",
		"age.over_75":                 "возраст {v} лет, старше 75",
		"activity.sedentary":          "сидячий образ жизни",
		"activity.low":                "низкая физическая активность",
		"activity.moderate":           "умеренная физическая активность",
		"activity.high":               "высокая физическая активность",
		"exercise_frequency.5_plus":   "тренировки {v} раз в неделю",
		"exercise_frequency.3_plus":   "тренировки {v} раза в неделю",
		"exercise_frequency.1_plus":   "тренировки {v} раз в неделю",
		"water_intake.8_plus":         "достаточное потребление воды, {v} стаканов",
		"water_intake.6_plus":         "хорошее потребление воды, {v} стаканов",
		"water_intake.4_plus":         "умеренное потребление воды, {v} стаканов",
		"water_intake.low":            "недостаточное потребление воды",
		"mental_health.high":          "отличное психическое самочувствие",
		"mental_health.good":          "хорошее психическое самочувствие",
		"mental_health.fair":          "удовлетворительное психическое самочувствие",
		"mental_health.low":           "сниженное психическое самочувствие",
		"resting_heart_rate.optimal":  "оптимальный пульс покоя {v}",
		"resting_heart_rate.normal":   "нормальный пульс покоя {v}",
		"resting_heart_rate.elevated": "повышенный пульс покоя {v}",
		"resting_heart_rate.abnormal": "пульс покоя вне нормы {v}",
		"blood_pressure.optimal":      "оптимальное давление",
		"blood_pressure.elevated":     "слегка повышенное давление",
		"blood_pressure.high":         "давление вне нормы",
		"sleep.optimal":               "оптимальный сон {v} ч",
		"sleep.acceptable":            "допустимая продолжительность сна {v} ч",
		"sleep.short":                 "недостаток сна {v} ч",
		"sleep.long":                  "избыточный сон {v} ч",
		"stress.low":                  "низкий стресс 1-3",
		"stress.moderate":             "умеренный стресс 4-5",
		"stress.elevated":             "повышенный стресс 6-8",
		"stress.high":                 "высокий стресс 9-10",
		"smoking.never":               "не курит",
		"smoking.former":              "бросил курить",
		"smoking.occasional":          "курит периодически",
		"smoking.regular":             "курит регулярно",
		"alcohol.none":                "не употребляет алкоголь",
		"alcohol.rare":                "редко употребляет алкоголь",
		"alcohol.moderate":            "умеренно употребляет алкоголь",
		"alcohol.frequent":            "часто употребляет алкоголь",
		"medical_conditions.none":     "нет хронических заболеваний",
		"medical_conditions.present":  "хронические заболевания: {v}",
		"bmi.normal":                  "нормальный ИМТ {v}",
		"bmi.overweight":              "избыточный вес, ИМТ {v}",
		"bmi.mild_underweight":        "легкий дефицит веса, ИМТ {v}",
		"bmi.obese":                   "ожирение, ИМТ {v}",
		"bmi.severe_obese":            "выраженное ожирение, ИМТ {v}",
		"bmi.underweight":             "ИМТ {v} вне оптимального диапазона",
		"biomarkers.panel":            "показатели анализов ({v} маркеров)",
		"analyses.present":            "регулярные анализы ({v})",
	},
	LocaleEN: {
		"age.under_25":                "age {v}, under 25",
		"age.25_35":                   "age {v}, 25-35",
		"age.36_45":                   "age {v}, 36-45",
		"age.46_55":                   "age {v}, 46-55",
		"age.56_65":                   "age {v}, 56-65",
		"age.66_75":                   "age {v}, 66-75",
		"age.over_75":                 "age {v}, over 75",
		"activity.sedentary":          "sedentary lifestyle",
		"activity.low":                "low physical activity",
		"activity.moderate":           "moderate physical activity",
		"activity.high":               "high physical activity",
		"exercise_frequency.5_plus":   "exercise {v} times a week",
		"exercise_frequency.3_plus":   "exercise {v} times a week",
		"exercise_frequency.1_plus":   "exercise {v} times a week",
		"water_intake.8_plus":         "good hydration, {v} glasses",
		"water_intake.6_plus":         "fair hydration, {v} glasses",
		"water_intake.4_plus":         "moderate hydration, {v} glasses",
		"water_intake.low":            "low water intake",
		"mental_health.high":          "excellent mental wellbeing",
		"mental_health.good":          "good mental wellbeing",
		"mental_health.fair":          "fair mental wellbeing",
		"mental_health.low":           "low mental wellbeing",
		"resting_heart_rate.optimal":  "optimal resting heart rate {v}",
		"resting_heart_rate.normal":   "normal resting heart rate {v}",
		"resting_heart_rate.elevated": "elevated resting heart rate {v}",
		"resting_heart_rate.abnormal": "resting heart rate out of range {v}",
		"blood_pressure.optimal":      "optimal blood pressure",
		"blood_pressure.elevated":     "slightly elevated blood pressure",
		"blood_pressure.high":         "blood pressure out of range",
		"sleep.optimal":               "optimal sleep {v}h",
		"sleep.acceptable":            "acceptable sleep {v}h",
		"sleep.short":                 "sleep deficit {v}h",
		"sleep.long":                  "oversleeping {v}h",
		"stress.low":                  "low stress 1-3",
		"stress.moderate":             "moderate stress 4-5",
		"stress.elevated":             "elevated stress 6-8",
		"stress.high":                 "high stress 9-10",
		"smoking.never":               "non-smoker",
		"smoking.former":              "former smoker",
		"smoking.occasional":          "occasional smoker",
		"smoking.regular":             "regular smoker",
		"alcohol.none":                "no alcohol",
		"alcohol.rare":                "rare alcohol use",
		"alcohol.moderate":            "moderate alcohol use",
		"alcohol.frequent":            "frequent alcohol use",
		"medical_conditions.none":     "no chronic conditions",
		"medical_conditions.present":  "chronic conditions: {v}",
		"bmi.normal":                  "healthy BMI {v}",
		"bmi.overweight":              "overweight, BMI {v}",
		"bmi.mild_underweight":        "mildly underweight, BMI {v}",
		"bmi.obese":                   "obesity, BMI {v}",
		"bmi.severe_obese":            "severe obesity, BMI {v}",
		"bmi.underweight":             "BMI {v} outside the healthy range",
		"biomarkers.panel":            "lab results ({v} markers)",
		"analyses.present":            "regular lab tests ({v})",
	},
}

type narrative struct {
	base      string
	total     string
	external  string
	separator string
}

var narratives = map[Locale]narrative{
	LocaleRU: {
		base:      "Базовый балл %s",
		total:     "Итоговый балл: %s",
		external:  "Балл %s получен из динамического расчета. Факторы профиля",
		separator: "; ",
	},
	LocaleEN: {
		base:      "Base score %s",
		total:     "Final score: %s",
		external:  "Score %s comes from the dynamic calculation. Profile factors",
		separator: "; ",
	},
}

func phrasesFor(l Locale) phrases {
	if p, ok := factorPhrases[l]; ok {
		return p
	}
	return factorPhrases[DefaultLocale]
}

func narrativeFor(l Locale) narrative {
	if n, ok := narratives[l]; ok {
		return n
	}
	return narratives[DefaultLocale]
}
