package analytics

import (
	"strings"

	"github.com/jwalitptl/health-analytics/internal/model"
)

// NormalizeRaw flattens UI wrapper values of a raw profile.
// An object carrying a customValue becomes that value (falling back to its value key),
// arrays are unwrapped element-wise with falsy results dropped, and everything else
// passes through unchanged.
func NormalizeRaw(raw model.RawProfile) model.RawProfile {
	out := make(model.RawProfile, len(raw))
	for k, v := range raw {
		out[k] = unwrap(v)
	}
	return out
}

// unwrap resolves a {value, customValue} selection to customValue when set, else to value.
// Objects carrying neither key pass through unchanged.
func unwrap(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if cv, ok := t["customValue"]; ok && !isFalsy(cv) {
			return cv
		}
		if val, ok := t["value"]; ok {
			return val
		}
		return t
	case []interface{}:
		items := make([]interface{}, 0, len(t))
		for _, item := range t {
			u := unwrap(item)
			if isFalsy(u) {
				continue
			}
			items = append(items, u)
		}
		return items
	default:
		return v
	}
}

func isFalsy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	default:
		return false
	}
}
