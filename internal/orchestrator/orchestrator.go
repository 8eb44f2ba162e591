// Package orchestrator coordinates a full backtest run over stored data:
// it loads signals and market series, simulates, persists the result, and
// builds the report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/backtest"
	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/observability"
	"sentiment-lab/internal/reporting"
	"sentiment-lab/internal/storage"
)

// Orchestrator runs backtests against stored signals and market data.
type Orchestrator struct {
	signalStore storage.SignalStore
	marketStore storage.MarketStore
	resultStore storage.BacktestResultStore // optional
	engineCfg   backtest.Config
	symbols     []string
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	SignalStore storage.SignalStore
	MarketStore storage.MarketStore
	ResultStore storage.BacktestResultStore // optional, results persisted when set
	EngineCfg   backtest.Config
	// Symbols restricts which market series are loaded.
	Symbols []string
	Metrics *observability.Metrics // optional
	Logger  zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.SignalStore == nil || opts.MarketStore == nil {
		return nil, errors.New("orchestrator: signal and market stores are required")
	}
	if len(opts.Symbols) == 0 {
		return nil, errors.New("orchestrator: at least one symbol is required")
	}

	return &Orchestrator{
		signalStore: opts.SignalStore,
		marketStore: opts.MarketStore,
		resultStore: opts.ResultStore,
		engineCfg:   opts.EngineCfg,
		symbols:     opts.Symbols,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}, nil
}

// RunResult bundles the outcome of one orchestrated backtest.
type RunResult struct {
	Result      *domain.BacktestResult
	EquityCurve []domain.EquityPoint
	Report      *reporting.Report
	// Stored reports whether the result reached the result store. False
	// when no store is configured or an identical run already exists.
	Stored bool
}

// Run executes the full backtest pipeline over [startMs, endMs].
func (o *Orchestrator) Run(ctx context.Context, startMs, endMs int64) (*RunResult, error) {
	started := time.Now()
	run, err := o.run(ctx, startMs, endMs)
	o.recordRun(run, err, time.Since(started))
	return run, err
}

func (o *Orchestrator) run(ctx context.Context, startMs, endMs int64) (*RunResult, error) {
	if startMs >= endMs {
		return nil, fmt.Errorf("orchestrator: start %d must precede end %d", startMs, endMs)
	}

	// Phase 1: load signals
	signals, err := o.signalStore.GetByTimeRange(ctx, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	o.logger.Info().Int("signals", len(signals)).Msg("signals loaded")

	// Phase 2: load market series
	prices := make(map[string][]*domain.MarketObservation, len(o.symbols))
	total := 0
	for _, symbol := range o.symbols {
		series, err := o.marketStore.GetByTimeRange(ctx, symbol, startMs, endMs)
		if err != nil {
			return nil, fmt.Errorf("load market series %s: %w", symbol, err)
		}
		if len(series) == 0 {
			continue
		}
		prices[symbol] = series
		total += len(series)
	}
	if total == 0 {
		return nil, fmt.Errorf("orchestrator: no market data in [%d, %d]", startMs, endMs)
	}
	o.logger.Info().Int("symbols", len(prices)).Int("ticks", total).Msg("market data loaded")

	// Phase 3: simulate
	engine, err := backtest.NewEngine(o.engineCfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	result, curve, err := engine.Run(ctx, signals, prices, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	o.logger.Info().
		Int("trades", result.TotalTrades).
		Float64("total_return", result.TotalReturn).
		Float64("max_drawdown", result.MaxDrawdown).
		Msg("simulation complete")

	// Phase 4: persist
	stored := false
	if o.resultStore != nil {
		err := o.resultStore.Insert(ctx, result)
		switch {
		case err == nil:
			stored = true
		case errors.Is(err, storage.ErrDuplicateKey):
			o.logger.Warn().Str("strategy", result.StrategyName).Msg("result for this period already stored")
		default:
			return nil, fmt.Errorf("store result: %w", err)
		}
	}

	return &RunResult{
		Result:      result,
		EquityCurve: curve,
		Report:      reporting.BuildReport([]*domain.BacktestResult{result}),
		Stored:      stored,
	}, nil
}

func (o *Orchestrator) recordRun(run *RunResult, err error, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	o.metrics.BacktestRunsTotal.WithLabelValues(status).Inc()
	o.metrics.BacktestDuration.Observe(elapsed.Seconds())
	if run != nil {
		o.metrics.TradesSimulated.Add(float64(run.Result.TotalTrades))
	}
}
