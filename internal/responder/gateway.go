package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Gateway implements Client against an OpenRouter-style chat completions API:
// one endpoint multiplexing many models, selected by the responder id.
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// GatewayOption configures a Gateway client.
type GatewayOption func(*Gateway)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.httpClient = c }
}

// NewGateway creates a gateway client. The per-call deadline is carried on the
// context by the dispatcher, so the underlying http.Client sets no timeout of
// its own.
func NewGateway(baseURL, apiKey string, opts ...GatewayOption) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("gateway API key required")
	}

	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Call sends a prompt to one responder model and returns the raw payload.
func (g *Gateway) Call(ctx context.Context, req Request) (*RawResult, error) {
	start := time.Now()

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:       req.ResponderID,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewCallError(ErrorInternal, req.ResponderID, "marshaling request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, NewCallError(ErrorInternal, req.ResponderID, "creating request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(req.ResponderID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewCallError(ErrorConnection, req.ResponderID, "reading response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(req.ResponderID, resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewCallError(ErrorInternal, req.ResponderID, "parsing response envelope", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, NewCallError(ErrorInternal, req.ResponderID, "no choices in response", nil)
	}

	content := joinContent(parsed.Choices[0].Message)

	usage := TokenUsage{
		Prompt:     parsed.Usage.PromptTokens,
		Completion: parsed.Usage.CompletionTokens,
		Total:      parsed.Usage.TotalTokens,
	}
	if usage.Total == 0 {
		// Some endpoints omit the usage block; estimate locally.
		usage.Prompt = EstimateTokens(req.Prompt + req.SystemPrompt)
		usage.Completion = EstimateTokens(content)
		usage.Total = usage.Prompt + usage.Completion
	}

	return &RawResult{
		ResponderID: req.ResponderID,
		Payload:     content,
		Latency:     time.Since(start),
		Tokens:      usage,
		ReceivedAt:  time.Now().UTC(),
	}, nil
}

// joinContent merges the content and reasoning channels some models answer on.
// A few reasoning-tuned models put the whole answer in the reasoning field.
func joinContent(m chatResponseMessage) string {
	parts := make([]string, 0, 2)
	if m.Reasoning != "" {
		parts = append(parts, m.Reasoning)
	}
	if m.Content != "" {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func classifyTransportError(responderID string, err error) *CallError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewCallError(ErrorTimeout, responderID, "call deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewCallError(ErrorTimeout, responderID, "call cancelled", err)
	}
	return NewCallError(ErrorConnection, responderID, "sending request", err)
}

func classifyStatus(responderID string, status int, body []byte) *CallError {
	msg := fmt.Sprintf("API error (status %d): %s", status, truncateBody(body))
	switch {
	case status == http.StatusTooManyRequests:
		return NewCallError(ErrorRateLimited, responderID, msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewCallError(ErrorAuthentication, responderID, msg, nil)
	case status == http.StatusNotFound:
		return NewCallError(ErrorNotFound, responderID, msg, nil)
	case status >= 500:
		return NewCallError(ErrorOutage, responderID, msg, nil)
	default:
		return NewCallError(ErrorBadRequest, responderID, msg, nil)
	}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	// No omitempty: temperature 0 is a deliberate setting, not an absence.
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseMessage struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatResponseMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
