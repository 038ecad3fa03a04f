package vector

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/localrivet/contentvault/internal/telemetry"
)

// Default pacing and backoff settings for the embedding batcher. They are
// tuned for providers that meter requests per minute: a small delay between
// calls, a longer pause between groups, and an exponential backoff capped
// at five minutes for throttled calls.
const (
	DefaultMinBackoff   = 1 * time.Second
	DefaultMaxBackoff   = 5 * time.Minute
	DefaultRequestDelay = 50 * time.Millisecond
	DefaultBatchDelay   = 2 * time.Second
)

// Embedding pairs a chunk's text with its vector. The batcher emits one
// Embedding per input chunk, in input order.
type Embedding struct {
	Text   string
	Vector []float32
}

// BatcherConfig holds the pacing and backoff settings for a Batcher.
type BatcherConfig struct {
	// BatchSize is the number of chunks per group; groups are separated
	// by BatchDelay.
	BatchSize int

	// MinBackoff is the base wait after the first rate-limited call.
	MinBackoff time.Duration

	// MaxBackoff caps the exponential backoff growth.
	MaxBackoff time.Duration

	// RequestDelay is inserted between successful calls within a group.
	RequestDelay time.Duration

	// BatchDelay is inserted between groups, never after the last one.
	BatchDelay time.Duration
}

// DefaultBatcherConfig returns the standard pacing configuration.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize:    DefaultBatchSize,
		MinBackoff:   DefaultMinBackoff,
		MaxBackoff:   DefaultMaxBackoff,
		RequestDelay: DefaultRequestDelay,
		BatchDelay:   DefaultBatchDelay,
	}
}

// Batcher drives an Embedder through bounded groups of chunks while
// respecting the provider's throughput limits. Calls within a group run
// sequentially on purpose: the pipeline is designed for a single logical
// worker per ingestion, and fan-out would defeat the rate pacing.
//
// Rate-limited calls are retried indefinitely with exponential backoff and
// ±25% jitter; every sleep honors the caller's context, so the caller's
// deadline is the liveness bound. Any other provider error aborts the
// whole call.
type Batcher struct {
	embedder Embedder
	config   BatcherConfig
	metrics  *telemetry.MetricsCollector

	// jitter returns a value in [0, 1); replaced in tests for
	// deterministic backoff.
	jitter func() float64

	// sleep pauses between calls and during backoff; replaced in tests
	// to observe the pacing schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatcher creates a Batcher in front of the given embedder. Zero or
// negative config values fall back to the defaults.
func NewBatcher(embedder Embedder, config BatcherConfig) *Batcher {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.MinBackoff <= 0 {
		config.MinBackoff = DefaultMinBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.RequestDelay < 0 {
		config.RequestDelay = DefaultRequestDelay
	}
	if config.BatchDelay < 0 {
		config.BatchDelay = DefaultBatchDelay
	}

	return &Batcher{
		embedder: embedder,
		config:   config,
		metrics:  telemetry.NewMetricsCollector(),
		jitter:   rand.Float64,
		sleep:    sleepContext,
	}
}

// Metrics returns the metrics collector for this batcher.
func (b *Batcher) Metrics() *telemetry.MetricsCollector {
	return b.metrics
}

// EmbedChunks converts the ordered chunk texts into embeddings, preserving
// input order: result[i] corresponds to texts[i]. Chunks are processed in
// groups of BatchSize with pacing delays between calls and between groups.
// On a non-rate-limit provider error the whole call fails; no partial
// result is returned.
func (b *Batcher) EmbedChunks(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return []Embedding{}, nil
	}

	results := make([]Embedding, 0, len(texts))

	for start := 0; start < len(texts); start += b.config.BatchSize {
		end := min(start+b.config.BatchSize, len(texts))
		group := texts[start:end]

		slog.Debug("processing embedding group",
			"start", start, "size", len(group), "total", len(texts))

		for i, text := range group {
			embedding, err := b.embedWithRetry(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("embedding chunk %d of %d: %w", start+i+1, len(texts), err)
			}
			results = append(results, Embedding{Text: text, Vector: embedding})

			// Smooth the request rate within the group.
			if i < len(group)-1 {
				if err := b.sleep(ctx, b.config.RequestDelay); err != nil {
					return nil, err
				}
			}
		}

		// A longer pause between groups, never after the last one.
		if end < len(texts) {
			slog.Debug("pausing between embedding groups", "delay", b.config.BatchDelay)
			if err := b.sleep(ctx, b.config.BatchDelay); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

// EmbedQuery embeds a single text. Newlines are normalized to spaces
// first: embedding providers may treat them as significant whitespace
// breaks, which distorts distances between otherwise identical texts.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	normalized := strings.ReplaceAll(text, "\n", " ")
	return b.embedWithRetry(ctx, normalized)
}

// retryState is the state of the per-chunk embedding retry machine.
type retryState int

const (
	stateCalling retryState = iota
	stateBackingOff
	stateDone
	stateFailed
)

// embedWithRetry runs one chunk through the retry state machine:
// Calling -> BackingOff -> Calling ... -> Done | Failed. Rate-limited
// failures loop through BackingOff indefinitely; everything else is fatal.
func (b *Batcher) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var (
		embedding  []float32
		callErr    error
		retryCount int
	)

	state := stateCalling
	for {
		switch state {
		case stateCalling:
			b.metrics.IncrementCounter(telemetry.MetricEmbedCalls, 1)
			callStart := time.Now()
			embedding, callErr = b.embedder.CreateEmbedding(ctx, text)
			b.metrics.RecordTimer(telemetry.MetricEmbedTime, time.Since(callStart))

			switch {
			case callErr == nil:
				if retryCount > 0 {
					b.metrics.IncrementCounter(telemetry.MetricRetrySuccess, 1)
				}
				state = stateDone
			case IsRateLimited(callErr):
				b.metrics.IncrementCounter(telemetry.MetricEmbedRateLimited, 1)
				state = stateBackingOff
			default:
				b.metrics.IncrementCounter(telemetry.MetricEmbedFailure, 1)
				state = stateFailed
			}

		case stateBackingOff:
			retryCount++
			b.metrics.IncrementCounter(telemetry.MetricRetryAttempts, 1)

			wait := b.backoff(retryCount)
			slog.Warn("rate limit hit, backing off",
				"wait", wait.Round(time.Millisecond), "attempt", retryCount)
			b.metrics.RecordTimer(telemetry.MetricBackoffTime, wait)

			if err := b.sleep(ctx, wait); err != nil {
				return nil, err
			}
			state = stateCalling

		case stateDone:
			b.metrics.IncrementCounter(telemetry.MetricEmbedSuccess, 1)
			return embedding, nil

		case stateFailed:
			return nil, callErr
		}
	}
}

// backoff computes min(MaxBackoff, MinBackoff * 2^retryCount) with a
// uniform ±25% jitter so synchronized clients do not retry in lockstep.
func (b *Batcher) backoff(retryCount int) time.Duration {
	backoff := b.config.MinBackoff
	for i := 0; i < retryCount && backoff < b.config.MaxBackoff; i++ {
		backoff *= 2
	}
	if backoff > b.config.MaxBackoff {
		backoff = b.config.MaxBackoff
	}

	jittered := float64(backoff) * (0.75 + b.jitter()*0.5)
	return time.Duration(jittered)
}

// sleepContext sleeps for the given duration unless the context is
// canceled first, in which case the context error is returned immediately.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
