// Package normalize turns heterogeneous raw responder payloads into canonical
// records. Responders answer in two wire shapes, a structured JSON document or
// free text, and the shape is sniffed per payload, not assumed per responder.
// Partial parses keep whatever fields are recoverable; only a completely
// absent conclusion lands a record in the unparsed bucket.
package normalize

import "conclave/internal/responder"

// Alternative is a secondary conclusion with the responder's own confidence
// in it, when stated.
type Alternative struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Record is the canonical form of one responder's answer. Created from
// exactly one RawResult; immutable afterward. A nil Confidence means the
// responder stated none, and downstream never guesses one.
type Record struct {
	ResponderID  string        `json:"responder_id"`
	Origin       string        `json:"origin"`
	Conclusion   string        `json:"conclusion"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Rationale    string        `json:"rationale"`
	Caveats      []string      `json:"caveats,omitempty"`
	Confidence   *float64      `json:"confidence,omitempty"`

	Tokens    responder.TokenUsage `json:"tokens"`
	FromCache bool                 `json:"from_cache"`
}

// Parseable reports whether the record carries a usable conclusion and may
// participate in the label-agreement tally. Unparseable records still count
// for availability metrics.
func (r *Record) Parseable() bool {
	return r.Conclusion != ""
}
