package analytics

import (
	"sort"

	"github.com/jwalitptl/health-analytics/internal/model"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"

	maxFallbackRecommendations = 3
)

type advice struct {
	title string
	body  string
}

var fallbackAdvice = map[Locale]map[model.Factor]advice{
	LocaleRU: {
		model.FactorActivity:     {"Больше движения", "Добавьте 30 минут ходьбы или легкой тренировки в день."},
		model.FactorExercise:     {"Регулярные тренировки", "Планируйте хотя бы три тренировки в неделю."},
		model.FactorWater:        {"Пейте больше воды", "Старайтесь выпивать 6-8 стаканов воды в день."},
		model.FactorMentalHealth: {"Забота о психическом здоровье", "Найдите время для отдыха и при необходимости обратитесь к специалисту."},
		model.FactorHeartRate:    {"Пульс покоя", "Обсудите показатели пульса с врачом и добавьте кардионагрузки."},
		model.FactorBloodPress:   {"Контроль давления", "Измеряйте давление регулярно и ограничьте соль."},
		model.FactorSleep:        {"Наладьте сон", "Спите 7-9 часов и ложитесь в одно и то же время."},
		model.FactorStress:       {"Снизьте стресс", "Попробуйте дыхательные упражнения, прогулки и регулярные перерывы."},
		model.FactorSmoking:      {"Откажитесь от курения", "Отказ от курения быстрее всего улучшит ваш балл здоровья."},
		model.FactorAlcohol:      {"Меньше алкоголя", "Сократите употребление алкоголя до минимума."},
		model.FactorConditions:   {"Наблюдение у врача", "Проходите плановые осмотры по вашим хроническим заболеваниям."},
		model.FactorBMI:          {"Вес в норме", "Сбалансированное питание поможет привести ИМТ к диапазону 18.5-24.9."},
		model.FactorBiomarkers:   {"Показатели анализов", "Обсудите отклонения в анализах с врачом и пересдайте их через 2-3 месяца."},
		model.FactorAge:          {"Профилактика", "Проходите возрастные профилактические обследования."},
	},
	LocaleEN: {
		model.FactorActivity:     {"Move more", "Add 30 minutes of walking or light training every day."},
		model.FactorExercise:     {"Exercise regularly", "Plan at least three workouts a week."},
		model.FactorWater:        {"Drink more water", "Aim for 6-8 glasses of water a day."},
		model.FactorMentalHealth: {"Mind your mental health", "Make time to rest and reach out to a specialist if needed."},
		model.FactorHeartRate:    {"Resting heart rate", "Discuss your heart rate with a doctor and add cardio."},
		model.FactorBloodPress:   {"Watch your blood pressure", "Measure blood pressure regularly and cut down on salt."},
		model.FactorSleep:        {"Improve your sleep", "Sleep 7-9 hours and keep a consistent bedtime."},
		model.FactorStress:       {"Reduce stress", "Try breathing exercises, walks and regular breaks."},
		model.FactorSmoking:      {"Quit smoking", "Quitting is the fastest way to raise your health score."},
		model.FactorAlcohol:      {"Drink less alcohol", "Keep alcohol to a minimum."},
		model.FactorConditions:   {"Stay under care", "Keep up with scheduled checkups for your chronic conditions."},
		model.FactorBMI:          {"Healthy weight", "Balanced nutrition helps bring BMI into the 18.5-24.9 range."},
		model.FactorBiomarkers:   {"Lab results", "Review abnormal results with a doctor and retest in 2-3 months."},
		model.FactorAge:          {"Prevention", "Keep up with age-appropriate screenings."},
	},
}

var maintainAdvice = map[Locale]advice{
	LocaleRU: {"Сохраняйте привычки", "Ваши показатели в хорошем состоянии. Продолжайте в том же духе и регулярно сдавайте анализы."},
	LocaleEN: {"Keep it up", "Your indicators look good. Keep your habits and get regular lab tests."},
}

// FallbackRecommendations derives up to three recommendations from the most
// negative adjustments. It is used when the recommendation backend is unreachable.
func FallbackRecommendations(adjs []model.Adjustment, locale Locale) model.Recommendations {
	table, ok := fallbackAdvice[locale]
	if !ok {
		locale = DefaultLocale
		table = fallbackAdvice[DefaultLocale]
	}

	negative := make([]model.Adjustment, 0, len(adjs))
	for _, a := range adjs {
		if a.Delta < 0 {
			negative = append(negative, a)
		}
	}
	sort.SliceStable(negative, func(i, j int) bool {
		return negative[i].Delta < negative[j].Delta
	})

	items := make([]model.Recommendation, 0, maxFallbackRecommendations)
	for _, a := range negative {
		if len(items) == maxFallbackRecommendations {
			break
		}
		adv, ok := table[a.Factor]
		if !ok {
			continue
		}
		items = append(items, model.Recommendation{
			Title:    adv.title,
			Body:     adv.body,
			Priority: priorityOf(a.Delta),
			Factor:   a.Factor,
		})
	}

	if len(items) == 0 {
		adv := maintainAdvice[locale]
		items = append(items, model.Recommendation{Title: adv.title, Body: adv.body, Priority: PriorityLow})
	}

	return model.Recommendations{Items: items, Fallback: true}
}

func priorityOf(delta float64) string {
	switch {
	case delta <= -10:
		return PriorityHigh
	case delta <= -5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
