package analytics

import (
	"strings"
	"unicode"
)

// NameNormalizer maps biomarker display names to a canonical key so readings
// from differently spelled lab reports land in the same trend series.
type NameNormalizer struct {
	aliases map[string]string
}

var defaultBiomarkerAliases = map[string]string{
	"холестерин":               "cholesterol",
	"общий холестерин":         "cholesterol",
	"cholesterol total":        "cholesterol",
	"total cholesterol":        "cholesterol",
	"глюкоза":                  "glucose",
	"глюкоза крови":            "glucose",
	"blood glucose":            "glucose",
	"сахар":                    "glucose",
	"гемоглобин":               "hemoglobin",
	"haemoglobin":              "hemoglobin",
	"hgb":                      "hemoglobin",
	"hb":                       "hemoglobin",
	"гликированный гемоглобин": "hba1c",
	"hb a1c":                   "hba1c",
	"ферритин":                 "ferritin",
	"железо":                   "iron",
	"витамин d":                "vitamin d",
	"25-oh витамин d":          "vitamin d",
	"25(oh)d":                  "vitamin d",
	"витамин b12":              "vitamin b12",
	"b12":                      "vitamin b12",
	"ттг":                      "tsh",
	"тиреотропный гормон":      "tsh",
	"креатинин":                "creatinine",
	"мочевина":                 "urea",
	"мочевая кислота":          "uric acid",
	"лпнп":                     "ldl",
	"ldl cholesterol":          "ldl",
	"лпвп":                     "hdl",
	"hdl cholesterol":          "hdl",
	"триглицериды":             "triglycerides",
	"алт":                      "alt",
	"аланинаминотрансфераза":   "alt",
	"аст":                      "ast",
	"аспартатаминотрансфераза": "ast",
	"с-реактивный белок":       "crp",
	"c-reactive protein":       "crp",
	"срб":                      "crp",
	"лейкоциты":                "wbc",
	"white blood cells":        "wbc",
	"эритроциты":               "rbc",
	"red blood cells":          "rbc",
	"тромбоциты":               "platelets",
	"соэ":                      "esr",
	"инсулин":                  "insulin",
	"кортизол":                 "cortisol",
	"тестостерон":              "testosterone",
	"общий белок":              "total protein",
	"билирубин":                "bilirubin",
	"общий билирубин":          "bilirubin",
}

// NewNameNormalizer builds a normalizer from alias -> canonical pairs.
// Keys and values are folded the same way lookups are.
func NewNameNormalizer(aliases map[string]string) *NameNormalizer {
	n := &NameNormalizer{aliases: make(map[string]string, len(aliases))}
	for alias, canonical := range aliases {
		n.aliases[fold(alias)] = fold(canonical)
	}
	return n
}

// DefaultNameNormalizer knows the common Russian and English spellings of routine blood panel markers.
func DefaultNameNormalizer() *NameNormalizer {
	return NewNameNormalizer(defaultBiomarkerAliases)
}

// Canonical returns the trend key for name. Unknown names are folded but otherwise kept.
func (n *NameNormalizer) Canonical(name string) string {
	key := fold(name)
	if n == nil {
		return key
	}
	if canonical, ok := n.aliases[key]; ok {
		return canonical
	}
	return key
}

// fold lowercases, trims and collapses inner whitespace.
func fold(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}
