// Package engine drives the periodic live evaluation cycle: aggregated
// windows feed the composite index, the index feeds signal synthesis, and
// both are persisted. A single goroutine owns the cycle so index readings
// and signals for one evaluation time are always consistent.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/aggregator"
	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/feargreed"
	"sentiment-lab/internal/observability"
	"sentiment-lab/internal/signal"
	"sentiment-lab/internal/storage"
)

// Engine runs the evaluation loop.
type Engine struct {
	agg         *aggregator.Aggregator
	calc        *feargreed.Calculator
	synth       *signal.Synthesizer
	indexStore  storage.IndexStore  // optional
	signalStore storage.SignalStore // optional
	metrics     *observability.Metrics
	interval    time.Duration
	shortWindow int
	logger      zerolog.Logger
	now         func() int64
}

// Options contains configuration for creating an Engine.
type Options struct {
	Aggregator         *aggregator.Aggregator
	Calculator         *feargreed.Calculator
	Synthesizer        *signal.Synthesizer
	IndexStore         storage.IndexStore     // optional, index snapshots persisted when set
	SignalStore        storage.SignalStore    // optional
	Metrics            *observability.Metrics // optional
	Interval           time.Duration          // Default: 60s
	ShortWindowSeconds int                    // Default: 300 - window the index is computed over
	Logger             zerolog.Logger
	// Now overrides the evaluation clock, used in tests.
	Now func() int64
}

// New creates an evaluation engine.
func New(opts Options) (*Engine, error) {
	if opts.Aggregator == nil || opts.Calculator == nil || opts.Synthesizer == nil {
		return nil, errors.New("engine: aggregator, calculator and synthesizer are required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	shortWindow := opts.ShortWindowSeconds
	if shortWindow <= 0 {
		shortWindow = 300
	}

	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}

	return &Engine{
		agg:         opts.Aggregator,
		calc:        opts.Calculator,
		synth:       opts.Synthesizer,
		indexStore:  opts.IndexStore,
		signalStore: opts.SignalStore,
		metrics:     opts.Metrics,
		interval:    interval,
		shortWindow: shortWindow,
		logger:      opts.Logger,
		now:         now,
	}, nil
}

// Run evaluates on the configured interval until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info().
		Dur("interval", e.interval).
		Int("short_window_seconds", e.shortWindow).
		Msg("evaluation engine started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("evaluation engine stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := e.EvaluateAt(ctx, e.now()); err != nil {
				e.logger.Error().Err(err).Msg("evaluation cycle failed")
			}
		}
	}
}

// EvaluateAt runs one evaluation cycle at the given time. It returns the
// computed index and the signals that survived the confidence gate.
func (e *Engine) EvaluateAt(ctx context.Context, nowMs int64) (*domain.CompositeIndex, []*domain.TradingSignal, error) {
	started := time.Now()

	assets := e.agg.Assets()
	windows := make(map[string]*domain.AggregatedWindow, len(assets))
	for _, asset := range assets {
		windows[asset] = e.agg.Query(asset, e.shortWindow, nowMs)
	}

	index := e.calc.Compute(windows, nowMs)
	signals := e.synth.Generate(index, nowMs)

	if err := e.persist(ctx, index, signals); err != nil {
		return index, signals, err
	}

	e.logger.Info().
		Float64("score", index.OverallScore).
		Str("classification", index.Classification.String()).
		Int("assets", len(assets)).
		Int("signals", len(signals)).
		Msg("evaluation cycle complete")

	if e.metrics != nil {
		e.metrics.EvaluationCycles.Inc()
		e.metrics.CompositeIndex.Set(index.OverallScore)
		e.metrics.TrackedAssets.Set(float64(len(assets)))
		for _, sig := range signals {
			e.metrics.SignalsGenerated.WithLabelValues(sig.Direction.String()).Inc()
		}
		e.metrics.EvaluationDuration.Observe(time.Since(started).Seconds())
		e.metrics.LastSuccessfulEvaluation.Set(float64(time.Now().Unix()))
	}

	return index, signals, nil
}

// persist writes the index snapshot and the signals. A signal already seen
// under the same identity is not an error; identical market conditions at
// the same evaluation time legitimately reproduce it.
func (e *Engine) persist(ctx context.Context, index *domain.CompositeIndex, signals []*domain.TradingSignal) error {
	if e.indexStore != nil {
		if err := e.indexStore.Insert(ctx, index); err != nil {
			if e.metrics != nil {
				e.metrics.DBQueryErrors.WithLabelValues("index", "insert").Inc()
			}
			return fmt.Errorf("store index: %w", err)
		}
	}

	if e.signalStore != nil {
		for _, sig := range signals {
			if err := e.signalStore.Insert(ctx, sig); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					continue
				}
				if e.metrics != nil {
					e.metrics.DBQueryErrors.WithLabelValues("signals", "insert").Inc()
				}
				return fmt.Errorf("store signal %s: %w", sig.SignalID, err)
			}
		}
	}
	return nil
}
