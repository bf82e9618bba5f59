package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"conclave/internal/responder"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// Normalize converts one raw responder payload into a canonical Record.
// It never fails: a payload that defeats every strategy still yields a
// record, just one without a conclusion.
func Normalize(raw *responder.RawResult, origin string, fromCache bool) *Record {
	rec := &Record{
		ResponderID: raw.ResponderID,
		Origin:      origin,
		Tokens:      raw.Tokens,
		FromCache:   fromCache,
	}

	if doc, ok := sniffStructured(raw.Payload); ok {
		applyStructured(rec, doc)
	}
	if !rec.Parseable() && rec.Rationale == "" {
		applyFreeText(rec, raw.Payload)
	}
	if rec.Confidence != nil {
		c := clampConfidence(*rec.Confidence)
		rec.Confidence = &c
	}
	for i, alt := range rec.Alternatives {
		if alt.Confidence != nil {
			c := clampConfidence(*alt.Confidence)
			rec.Alternatives[i].Confidence = &c
		}
	}
	return rec
}

// structuredDoc is the JSON answer shape the panel prompt asks responders
// for. Confidence fields are loosely typed because responders routinely
// send "high" where a number was requested.
type structuredDoc struct {
	Conclusion   string `json:"conclusion"`
	Alternatives []struct {
		Label      string `json:"label"`
		Confidence any    `json:"confidence"`
	} `json:"alternatives"`
	Rationale  string   `json:"rationale"`
	Caveats    []string `json:"caveats"`
	Confidence any      `json:"confidence"`
}

// sniffStructured decides whether a payload is a structured document. A bare
// JSON object counts, and so does one wrapped in a markdown code fence;
// several responders fence their JSON no matter how they are prompted.
func sniffStructured(payload string) (*structuredDoc, bool) {
	candidate := strings.TrimSpace(payload)
	if m := fencePattern.FindStringSubmatch(payload); m != nil {
		candidate = m[1]
	}
	if !strings.HasPrefix(candidate, "{") {
		return nil, false
	}
	var doc structuredDoc
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, false
	}
	if doc.Conclusion == "" && doc.Rationale == "" && len(doc.Alternatives) == 0 {
		// Valid JSON but none of our fields; treat as free text.
		return nil, false
	}
	return &doc, true
}

func applyStructured(rec *Record, doc *structuredDoc) {
	rec.Conclusion = strings.TrimSpace(doc.Conclusion)
	rec.Rationale = strings.TrimSpace(doc.Rationale)
	for _, c := range doc.Caveats {
		if c = strings.TrimSpace(c); c != "" {
			rec.Caveats = append(rec.Caveats, c)
		}
	}
	for _, alt := range doc.Alternatives {
		label := strings.TrimSpace(alt.Label)
		if label == "" {
			continue
		}
		rec.Alternatives = append(rec.Alternatives, Alternative{
			Label:      label,
			Confidence: parseConfidenceValue(alt.Confidence),
		})
	}
	if doc.Confidence != nil {
		rec.Confidence = parseConfidenceValue(doc.Confidence)
	}
}
