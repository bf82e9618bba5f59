package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Ordinal confidence words map to fixed mid-band values so that "high" from
// one responder compares meaningfully with 0.8 from another.
var ordinalConfidence = map[string]float64{
	"very high": 0.9,
	"high":      0.8,
	"moderate":  0.6,
	"medium":    0.6,
	"low":       0.3,
	"very low":  0.15,
}

// The percent forms require a nearby certainty word so that percentages
// attached to alternatives are not mistaken for the overall confidence.
var (
	percentAfter   = regexp.MustCompile(`(?i)(\d{1,3})\s*%\s*(?:confidence|confident|certain|certainty|sure|likely)`)
	percentBefore  = regexp.MustCompile(`(?i)(?:confidence|confident|certainty|certain)\D{0,12}(\d{1,3})\s*%`)
	decimalPattern = regexp.MustCompile(`(?i)\bconfidence\b[^0-9]{0,20}(0?\.\d+|1\.0|1|0)\b`)
	ordinalPattern = regexp.MustCompile(`(?i)\b(very high|very low|high|moderate|medium|low)\s+(?:confidence|certainty)`)
)

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// parseConfidenceValue interprets a structured-payload confidence field,
// which may arrive as a number or as an ordinal word.
func parseConfidenceValue(v any) *float64 {
	switch c := v.(type) {
	case float64:
		out := clampConfidence(c)
		return &out
	case string:
		s := strings.ToLower(strings.TrimSpace(c))
		if ord, ok := ordinalConfidence[s]; ok {
			return &ord
		}
		percent := strings.HasSuffix(s, "%")
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			if percent {
				n /= 100
			}
			out := clampConfidence(n)
			return &out
		}
	}
	return nil
}

// extractConfidence scans free text for a stated confidence, preferring the
// most explicit form: a percentage, then a decimal near the word
// "confidence", then an ordinal word.
func extractConfidence(text string) *float64 {
	for _, pat := range []*regexp.Regexp{percentAfter, percentBefore} {
		if m := pat.FindStringSubmatch(text); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				out := clampConfidence(n / 100)
				return &out
			}
		}
	}
	if m := decimalPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			out := clampConfidence(n)
			return &out
		}
	}
	if m := ordinalPattern.FindStringSubmatch(text); m != nil {
		if ord, ok := ordinalConfidence[strings.ToLower(m[1])]; ok {
			return &ord
		}
	}
	return nil
}
