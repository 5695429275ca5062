package analytics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwalitptl/health-analytics/internal/model"
)

// Explain renders the adjustments behind a score as one narrative, in the order
// the rules were evaluated. Phrases are looked up by factor and band, so the text
// never disagrees with the arithmetic.
func Explain(result model.ScoreResult, locale Locale) string {
	table := phrasesFor(locale)
	n := narrativeFor(locale)

	parts := make([]string, 0, len(result.Adjustments)+2)
	if result.Source == model.ScoreSourceExternal {
		parts = append(parts, fmt.Sprintf(n.external, formatNumber(result.Value)))
	} else {
		parts = append(parts, fmt.Sprintf(n.base, formatNumber(BaseScore)))
	}

	for _, a := range result.Adjustments {
		parts = append(parts, fmt.Sprintf("%s (%s)", phrase(table, a), formatDelta(a.Delta)))
	}

	if result.Source != model.ScoreSourceExternal {
		parts = append(parts, fmt.Sprintf(n.total, formatNumber(result.Value)))
	}
	return strings.Join(parts, n.separator)
}

func phrase(table phrases, a model.Adjustment) string {
	tmpl, ok := table[string(a.Factor)+"."+a.Band]
	if !ok {
		tmpl = string(a.Factor) + " {v}"
	}
	return strings.ReplaceAll(tmpl, "{v}", formatNumber(a.Value))
}

// formatDelta renders 0 as "0" and everything else with an explicit sign.
func formatDelta(d float64) string {
	d = round2(d)
	if d == 0 {
		return "0"
	}
	if d > 0 {
		return "+" + formatNumber(d)
	}
	return formatNumber(d)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}
