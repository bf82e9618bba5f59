// Package dispatch fans one query out to the selected responders under a
// bounded worker pool. Every responder it is given reaches a terminal outcome:
// a raw payload (fresh or cached) or a typed error. One responder's failure
// never aborts the batch.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"conclave/internal/cache"
	"conclave/internal/dispatch/metrics"
	"conclave/internal/registry"
	"conclave/internal/responder"
)

// Query is the immutable per-run input to dispatch. The prompt is fully
// rendered before dispatch so every responder sees identical text and the
// cache fingerprint is stable.
type Query struct {
	Prompt        string
	SystemPrompt  string
	PromptVersion string
	MaxTokens     int
	Temperature   float64
	BypassCache   bool
}

// Outcome is the terminal state of one responder's dispatch.
type Outcome struct {
	Raw       *responder.RawResult
	Err       error
	FromCache bool
	Attempts  int
}

// Config bounds dispatch behavior.
type Config struct {
	Concurrency   int
	MaxRetries    int
	CacheTTL      time.Duration
	RetryInterval time.Duration
	// CallTimeout bounds a single call when the target descriptor does not
	// carry its own timeout.
	CallTimeout time.Duration
}

// Dispatcher issues one call per selected responder.
type Dispatcher struct {
	client  responder.Client
	store   cache.Store // nil disables caching
	logger  *slog.Logger
	metrics *metrics.Metrics
	cfg     Config
}

// New constructs a dispatcher. store and metrics may be nil.
func New(client responder.Client, store cache.Store, logger *slog.Logger, m *metrics.Metrics, cfg Config) (*Dispatcher, error) {
	if client == nil {
		return nil, errors.New("responder client is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &Dispatcher{
		client:  client,
		store:   store,
		logger:  logger,
		metrics: m,
		cfg:     cfg,
	}, nil
}

// Run dispatches the query to every target and returns a terminal outcome per
// responder id. It honors the context deadline: in-flight calls are cancelled
// cooperatively and reported as timeout errors.
func (d *Dispatcher) Run(ctx context.Context, q Query, targets []registry.Descriptor) map[string]Outcome {
	var (
		mu       sync.Mutex
		outcomes = make(map[string]Outcome, len(targets))
	)

	g := new(errgroup.Group)
	g.SetLimit(d.cfg.Concurrency)

	for _, target := range targets {
		g.Go(func() error {
			outcome := d.dispatchOne(ctx, q, target)

			mu.Lock()
			outcomes[target.ID] = outcome
			mu.Unlock()
			return nil
		})
	}

	// Pure barrier: workers never return errors, they record outcomes.
	_ = g.Wait()

	return outcomes
}

func (d *Dispatcher) dispatchOne(ctx context.Context, q Query, target registry.Descriptor) Outcome {
	fp := cache.NewFingerprint(q.Prompt, target.ID, q.PromptVersion)

	if !q.BypassCache {
		if raw, ok := d.lookupCache(ctx, fp, target.ID); ok {
			return Outcome{Raw: raw, FromCache: true}
		}
	}

	start := time.Now()
	raw, attempts, err := d.callWithRetry(ctx, q, target)
	d.metrics.IncrementRetries(attempts - 1)

	if err != nil {
		d.metrics.ObserveCall(target.ID, "error", time.Since(start))
		if d.logger != nil {
			d.logger.WarnContext(ctx, "responder call failed",
				"responder", target.ID,
				"category", responder.CategoryOf(err),
				"attempts", attempts,
				"error", err,
			)
		}
		return Outcome{Err: err, Attempts: attempts}
	}

	d.metrics.ObserveCall(target.ID, "success", time.Since(start))
	d.storeCache(ctx, fp, raw, target.ID)

	return Outcome{Raw: raw, Attempts: attempts}
}

// callWithRetry performs the call with bounded exponential backoff. Permanent
// errors stop immediately; transient ones retry up to cfg.MaxRetries times.
func (d *Dispatcher) callWithRetry(ctx context.Context, q Query, target registry.Descriptor) (*responder.RawResult, int, error) {
	var (
		raw      *responder.RawResult
		attempts int
	)

	op := func() error {
		attempts++

		timeout := target.Timeout
		if timeout <= 0 {
			timeout = d.cfg.CallTimeout
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r, err := d.client.Call(callCtx, responder.Request{
			ResponderID:  target.ID,
			Prompt:       q.Prompt,
			SystemPrompt: q.SystemPrompt,
			MaxTokens:    q.MaxTokens,
			Temperature:  q.Temperature,
		})
		if err != nil {
			// Once the run deadline has expired there is nothing left to
			// retry against; surface the typed timeout as terminal.
			if ctx.Err() != nil || !responder.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		raw = r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(d.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, attempts, err
	}
	return raw, attempts, nil
}

func (d *Dispatcher) lookupCache(ctx context.Context, fp cache.Fingerprint, responderID string) (*responder.RawResult, bool) {
	if d.store == nil {
		return nil, false
	}

	raw, err := d.store.Get(ctx, fp)
	switch {
	case err == nil:
		d.metrics.IncrementCacheLookup("hit")
		d.metrics.ObserveCall(responderID, "cache_hit", 0)
		return raw, true
	case errors.Is(err, cache.ErrMiss):
		d.metrics.IncrementCacheLookup("miss")
	default:
		// Cache I/O failure degrades to a miss, never fails the run.
		d.metrics.IncrementCacheLookup("error")
		if d.logger != nil {
			d.logger.WarnContext(ctx, "cache lookup failed, treating as miss",
				"responder", responderID, "error", err)
		}
	}
	return nil, false
}

func (d *Dispatcher) storeCache(ctx context.Context, fp cache.Fingerprint, raw *responder.RawResult, responderID string) {
	if d.store == nil {
		return
	}
	if err := d.store.Put(ctx, fp, raw, d.cfg.CacheTTL); err != nil && d.logger != nil {
		d.logger.WarnContext(ctx, "cache write failed",
			"responder", responderID, "error", err)
	}
}
