package panel

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"conclave/internal/consensus"
	"conclave/internal/dispatch"
	"conclave/internal/normalize"
	"conclave/internal/panel/metrics"
	"conclave/internal/registry"
	"conclave/internal/responder"
	"conclave/internal/synthesis"
	dErrors "conclave/pkg/domain-errors"
	pstrings "conclave/pkg/platform/strings"
)

// Service runs consensus panels end to end.
type Service struct {
	registry      *registry.Registry
	dispatcher    *dispatch.Dispatcher
	aggregator    *consensus.Aggregator
	synthesizer   *synthesis.Synthesizer
	metrics       *metrics.Metrics
	logger        *slog.Logger
	minResponders int
}

// NewService constructs the panel service. metrics may be nil.
func NewService(
	reg *registry.Registry,
	dispatcher *dispatch.Dispatcher,
	aggregator *consensus.Aggregator,
	synthesizer *synthesis.Synthesizer,
	m *metrics.Metrics,
	logger *slog.Logger,
	minResponders int,
) (*Service, error) {
	if reg == nil || dispatcher == nil || aggregator == nil || synthesizer == nil {
		return nil, errors.New("panel: registry, dispatcher, aggregator, and synthesizer are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if minResponders <= 0 {
		minResponders = 3
	}
	return &Service{
		registry:      reg,
		dispatcher:    dispatcher,
		aggregator:    aggregator,
		synthesizer:   synthesizer,
		metrics:       m,
		logger:        logger,
		minResponders: minResponders,
	}, nil
}

// Responders lists the catalogue for the selection endpoint.
func (s *Service) Responders() []Responder {
	descriptors := s.registry.All()
	out := make([]Responder, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, Responder{
			ID:     d.ID,
			Name:   d.Name,
			Origin: d.Origin,
			Tier:   d.Tier,
			Free:   d.Free,
		})
	}
	return out
}

// Run executes one consensus run. The only fatal conditions are an invalid
// request and a panel where no responder produced a payload; everything else
// degrades into the result.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "query must not be empty")
	}

	targets, err := s.selectTargets(req.ResponderIDs)
	if err != nil {
		return nil, err
	}

	version := req.PromptVersion
	if version == "" {
		version = DefaultPromptVersion
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	outcomes := s.dispatcher.Run(ctx, dispatch.Query{
		Prompt:        query,
		SystemPrompt:  systemPrompt,
		PromptVersion: version,
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		BypassCache:   req.BypassCache,
	}, targets)

	result := &RunResult{
		RunID:     uuid.NewString(),
		Query:     query,
		StartedAt: start,
		Totals: Totals{
			Responders:   len(targets),
			TokensByTier: make(map[string]int),
		},
	}
	s.collectOutcomes(result, targets, outcomes)

	if result.Totals.Succeeded == 0 {
		s.metrics.ObserveRun("failed", time.Since(start))
		s.logger.ErrorContext(ctx, "panel run failed: no responder succeeded",
			"run_id", result.RunID,
			"responders", len(targets),
		)
		return nil, dErrors.New(dErrors.CodeUnavailable, "no responder produced a response")
	}

	result.Consensus = s.aggregator.Aggregate(result.Records)
	result.Bias = consensus.AttributeBias(result.Consensus)
	result.Flags.OriginSkew = len(result.Bias.Flags) > 0
	result.Flags.BelowConfidenceThreshold = result.Totals.Succeeded < s.minResponders

	result.Facets = s.synthesizer.Run(ctx, synthesis.Input{
		Query:   query,
		Report:  result.Consensus,
		Bias:    result.Bias,
		Records: result.Records,
	})
	for _, facet := range result.Facets {
		addTokens(&result.Totals.Tokens, facet.Tokens)
	}

	result.DurationMS = time.Since(start).Milliseconds()

	s.metrics.ObserveRun("ok", time.Since(start))
	s.metrics.ObserveStrength(string(result.Consensus.Strength))
	s.metrics.AddSkewFlags(len(result.Bias.Flags))
	if result.Flags.BelowConfidenceThreshold {
		s.metrics.IncrementBelowThreshold()
	}

	s.logger.InfoContext(ctx, "panel run completed",
		"run_id", result.RunID,
		"responders", len(targets),
		"succeeded", result.Totals.Succeeded,
		"cache_hits", result.Totals.CacheHits,
		"strength", result.Consensus.Strength,
		"below_threshold", result.Flags.BelowConfidenceThreshold,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

func (s *Service) selectTargets(ids []string) ([]registry.Descriptor, error) {
	if ids = pstrings.DedupeAndTrim(ids); len(ids) > 0 {
		return s.registry.Resolve(ids)
	}
	free := s.registry.Free()
	if len(free) == 0 {
		return nil, dErrors.New(dErrors.CodeUnavailable, "no free-tier responders in the catalogue")
	}
	return free, nil
}

func (s *Service) collectOutcomes(result *RunResult, targets []registry.Descriptor, outcomes map[string]dispatch.Outcome) {
	for _, target := range targets {
		outcome, ok := outcomes[target.ID]
		if !ok {
			continue
		}
		if outcome.Err != nil {
			result.Totals.Failed++
			result.Errors = append(result.Errors, ResponderError{
				ResponderID: target.ID,
				Origin:      target.Origin,
				Category:    string(responder.CategoryOf(outcome.Err)),
				Message:     outcome.Err.Error(),
				Retryable:   responder.IsRetryable(outcome.Err),
				Attempts:    outcome.Attempts,
			})
			continue
		}

		rec := normalize.Normalize(outcome.Raw, target.Origin, outcome.FromCache)
		result.Records = append(result.Records, rec)
		result.Totals.Succeeded++
		if outcome.FromCache {
			result.Totals.CacheHits++
		}
		addTokens(&result.Totals.Tokens, rec.Tokens)
		result.Totals.TokensByTier[string(target.Tier)] += rec.Tokens.Total
	}
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].ResponderID < result.Errors[j].ResponderID
	})
}

func addTokens(sum *responder.TokenUsage, t responder.TokenUsage) {
	sum.Prompt += t.Prompt
	sum.Completion += t.Completion
	sum.Total += t.Total
}
