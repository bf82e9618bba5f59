// Package panel orchestrates a full consensus run: responder selection,
// dispatch, normalization, aggregation, bias attribution, and synthesis.
package panel

import (
	"time"

	"conclave/internal/consensus"
	"conclave/internal/normalize"
	"conclave/internal/registry"
	"conclave/internal/responder"
	"conclave/internal/synthesis"
)

// RunRequest describes one consensus run. An empty ResponderIDs list selects
// the free-tier panel from the catalogue.
type RunRequest struct {
	Query         string
	ResponderIDs  []string
	PromptVersion string
	BypassCache   bool
	MaxTokens     int
	// Temperature nil means "use the default"; zero is a valid explicit
	// setting and is passed through as-is.
	Temperature *float64
}

// ResponderError reports one responder that reached no payload. Responder
// failures are part of the result, not a reason to fail the run.
type ResponderError struct {
	ResponderID string `json:"responder_id"`
	Origin      string `json:"origin"`
	Category    string `json:"category"`
	Message     string `json:"message"`
	Retryable   bool   `json:"retryable"`
	Attempts    int    `json:"attempts"`
}

// Flags carries run-level quality signals.
type Flags struct {
	// BelowConfidenceThreshold is set when fewer responders succeeded than
	// the configured minimum. The result is still returned.
	BelowConfidenceThreshold bool `json:"below_confidence_threshold"`
	// OriginSkew is set when any label's support concentrates in one origin.
	OriginSkew bool `json:"origin_skew"`
}

// Totals is the run's bookkeeping: availability, cache reuse, and spend.
type Totals struct {
	Responders   int                  `json:"responders"`
	Succeeded    int                  `json:"succeeded"`
	Failed       int                  `json:"failed"`
	CacheHits    int                  `json:"cache_hits"`
	Tokens       responder.TokenUsage `json:"tokens"`
	TokensByTier map[string]int       `json:"tokens_by_tier,omitempty"`
}

// RunResult is the complete outcome of one consensus run.
type RunResult struct {
	RunID      string                                    `json:"run_id"`
	Query      string                                    `json:"query"`
	StartedAt  time.Time                                 `json:"started_at"`
	DurationMS int64                                     `json:"duration_ms"`
	Records    []*normalize.Record                       `json:"records"`
	Errors     []ResponderError                          `json:"errors,omitempty"`
	Consensus  *consensus.Report                         `json:"consensus"`
	Bias       *consensus.BiasReport                     `json:"bias"`
	Facets     map[synthesis.Facet]synthesis.FacetResult `json:"facets"`
	Flags      Flags                                     `json:"flags"`
	Totals     Totals                                    `json:"totals"`
}

// Responder is the catalogue view exposed over HTTP.
type Responder struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Origin string            `json:"origin"`
	Tier   registry.CostTier `json:"tier"`
	Free   bool              `json:"free"`
}
