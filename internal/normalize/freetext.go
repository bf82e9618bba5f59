package normalize

import (
	"regexp"
	"strings"
)

// Free-text answers get section-scanned. Responders are prompted for labeled
// sections but phrase the headings loosely, so each section accepts a family
// of headings and markdown dressing around them.
var (
	// Longer headings come first: alternation is leftmost-first, so a prefix
	// branch like "alternatives?" would otherwise swallow the front of
	// "Alternative conclusions:" and leave the tail behind as body text.
	headerPattern = regexp.MustCompile(`(?i)^\s*(?:#+\s*|\*{1,2})?(primary conclusion|alternative conclusions?|conclusions?|alternatives?|other possibilities|differential|answer|assessment|rationale|reasoning|explanation|caveats?|limitations|uncertainties)\s*\*{0,2}\s*:?\s*(.*)$`)
	bulletPattern = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*(.+)$`)
	altConfTrail  = regexp.MustCompile(`(?i)\s*[\(\[](?:confidence[:\s]*)?(\d{1,3}\s*%|0?\.\d+)[\)\]]\s*$`)
)

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionConclusion
	sectionAlternatives
	sectionRationale
	sectionCaveats
)

func classifyHeader(word string) sectionKind {
	switch strings.ToLower(word) {
	case "conclusion", "conclusions", "primary conclusion", "answer", "assessment":
		return sectionConclusion
	case "alternative", "alternatives", "alternative conclusion", "alternative conclusions", "differential", "other possibilities":
		return sectionAlternatives
	case "rationale", "reasoning", "explanation":
		return sectionRationale
	case "caveat", "caveats", "limitations", "uncertainties":
		return sectionCaveats
	}
	return sectionNone
}

func applyFreeText(rec *Record, payload string) {
	current := sectionNone
	var rationale []string

	for _, line := range strings.Split(payload, "\n") {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			if kind := classifyHeader(m[1]); kind != sectionNone {
				current = kind
				if rest := strings.TrimSpace(m[2]); rest != "" {
					consumeLine(rec, &rationale, current, rest)
				}
				continue
			}
		}
		if line = strings.TrimSpace(line); line != "" {
			consumeLine(rec, &rationale, current, line)
		}
	}

	rec.Rationale = strings.Join(rationale, " ")
	if rec.Conclusion == "" && rec.Rationale == "" {
		// No sections at all; keep the whole payload as rationale so the
		// answer is still inspectable, but the record stays unparsed.
		rec.Rationale = strings.TrimSpace(payload)
	}
	if rec.Confidence == nil {
		rec.Confidence = extractConfidence(payload)
	}
}

func consumeLine(rec *Record, rationale *[]string, kind sectionKind, line string) {
	switch kind {
	case sectionConclusion:
		if rec.Conclusion == "" {
			rec.Conclusion = stripBullet(line)
		} else {
			*rationale = append(*rationale, line)
		}
	case sectionAlternatives:
		label := stripBullet(line)
		var conf *float64
		if m := altConfTrail.FindStringSubmatch(label); m != nil {
			conf = parseConfidenceValue(m[1])
			label = strings.TrimSpace(altConfTrail.ReplaceAllString(label, ""))
		}
		if label != "" {
			rec.Alternatives = append(rec.Alternatives, Alternative{Label: label, Confidence: conf})
		}
	case sectionCaveats:
		rec.Caveats = append(rec.Caveats, stripBullet(line))
	case sectionRationale, sectionNone:
		*rationale = append(*rationale, line)
	}
}

func stripBullet(line string) string {
	if m := bulletPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(line)
}
