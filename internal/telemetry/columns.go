package telemetry

import "strings"

// ColumnRules picks a header by case-insensitive substring matching. Require
// is the token set a header must contain to be a candidate at all; Prefer is
// an ordered list of preference tiers, earlier tiers winning. Within a tier,
// and among candidates when no tier matches, file order decides.
type ColumnRules struct {
	Require []string
	Prefer  [][]string
}

// TimeRules locates the elapsed-time axis of a power log.
var TimeRules = ColumnRules{
	Require: []string{"elapsed", "time"},
	Prefer: [][]string{
		{"elapsed time"},
		{"elapsed"},
		{"time"},
	},
}

// PowerRules locates the power axis, preferring package/CPU-level readings
// over ancillary rails.
var PowerRules = ColumnRules{
	Require: []string{"power", "watt"},
	Prefer: [][]string{
		{"package", "processor", "cpu"},
	},
}

// Pick returns the chosen header and whether anything matched.
func (r ColumnRules) Pick(headers []string) (string, bool) {
	var candidates []string
	for _, h := range headers {
		if containsAny(h, r.Require) {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	for _, tier := range r.Prefer {
		for _, h := range candidates {
			if containsAny(h, tier) {
				return h, true
			}
		}
	}
	return candidates[0], true
}

func containsAny(header string, tokens []string) bool {
	lower := strings.ToLower(header)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
