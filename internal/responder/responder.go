// Package responder defines the outbound call layer: the Client interface all
// responder transports implement, the raw call result, and the normalized
// failure taxonomy used by retry and reporting logic.
package responder

import (
	"context"
	"time"
)

// Request contains all inputs for one responder call.
type Request struct {
	ResponderID  string
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// TokenUsage captures token accounting for a call. When the endpoint reports
// no usage the counts fall back to a local estimate.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// RawResult is the unparsed outcome of one successful responder call. It is
// consumed by the normalizer and retained only inside the cache.
type RawResult struct {
	ResponderID string        `json:"responder_id"`
	Payload     string        `json:"payload"`
	Latency     time.Duration `json:"latency"`
	Tokens      TokenUsage    `json:"tokens"`
	ReceivedAt  time.Time     `json:"received_at"`
}

// Client abstracts a responder transport.
type Client interface {
	// Call sends one prompt to one responder and returns the raw payload.
	// Failures are *CallError values categorized for retry decisions.
	Call(ctx context.Context, req Request) (*RawResult, error)
}

// Func allows functions to implement Client (adapter pattern).
// Useful for testing and simple inline implementations.
type Func func(ctx context.Context, req Request) (*RawResult, error)

func (f Func) Call(ctx context.Context, req Request) (*RawResult, error) {
	return f(ctx, req)
}

// EstimateTokens is the local fallback used when an endpoint reports no usage
// block: roughly four characters per token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
