// Package verification checks that stored backtest results are reproducible.
// A verified run is re-simulated from the same stored signals and market
// data; any divergence means the inputs changed or determinism broke.
package verification

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/backtest"
	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/orchestrator"
	"sentiment-lab/internal/storage"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected any // stored value
	Actual   any // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	StrategyName   string
	StartMs        int64
	EndMs          int64
	Match          bool
	Divergences    []FieldDivergence
	StoredReturn   float64
	ReplayedReturn float64
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	Results       []VerificationResult
}

// Verifier re-simulates stored results and compares them field by field.
type Verifier struct {
	resultStore storage.BacktestResultStore
	replayer    *orchestrator.Orchestrator
}

// Options for creating a Verifier.
type Options struct {
	ResultStore storage.BacktestResultStore
	SignalStore storage.SignalStore
	MarketStore storage.MarketStore
	EngineCfg   backtest.Config
	Symbols     []string
	Logger      zerolog.Logger
}

// New creates a Verifier. The replay path never writes back to storage.
func New(opts Options) (*Verifier, error) {
	if opts.ResultStore == nil {
		return nil, fmt.Errorf("verification: result store is required")
	}

	replayer, err := orchestrator.New(orchestrator.Options{
		SignalStore: opts.SignalStore,
		MarketStore: opts.MarketStore,
		EngineCfg:   opts.EngineCfg,
		Symbols:     opts.Symbols,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Verifier{
		resultStore: opts.ResultStore,
		replayer:    replayer,
	}, nil
}

// Verify re-runs one stored result's period and compares.
func (v *Verifier) Verify(ctx context.Context, stored *domain.BacktestResult) (*VerificationResult, error) {
	run, err := v.replayer.Run(ctx, stored.StartMs, stored.EndMs)
	if err != nil {
		return nil, fmt.Errorf("replay %s [%d, %d]: %w", stored.StrategyName, stored.StartMs, stored.EndMs, err)
	}

	divergences := CompareResults(stored, run.Result)
	return &VerificationResult{
		StrategyName:   stored.StrategyName,
		StartMs:        stored.StartMs,
		EndMs:          stored.EndMs,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredReturn:   stored.TotalReturn,
		ReplayedReturn: run.Result.TotalReturn,
	}, nil
}

// VerifyAll verifies every stored result.
func (v *Verifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	stored, err := v.resultStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	report := &VerificationReport{TotalRuns: len(stored)}
	for _, r := range stored {
		result, err := v.Verify(ctx, r)
		if err != nil {
			return nil, err
		}
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
		report.Results = append(report.Results, *result)
	}
	return report, nil
}

// CompareResults compares two results and returns divergences. Floats are
// compared with FloatTolerance; two infinite profit factors are equal.
func CompareResults(stored, replayed *domain.BacktestResult) []FieldDivergence {
	var divergences []FieldDivergence

	check := func(field string, expected, actual any, equal bool) {
		if !equal {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}

	check("StrategyName", stored.StrategyName, replayed.StrategyName, stored.StrategyName == replayed.StrategyName)
	check("StartMs", stored.StartMs, replayed.StartMs, stored.StartMs == replayed.StartMs)
	check("EndMs", stored.EndMs, replayed.EndMs, stored.EndMs == replayed.EndMs)
	check("TotalReturn", stored.TotalReturn, replayed.TotalReturn, floatEquals(stored.TotalReturn, replayed.TotalReturn))
	check("SharpeRatio", stored.SharpeRatio, replayed.SharpeRatio, floatEquals(stored.SharpeRatio, replayed.SharpeRatio))
	check("MaxDrawdown", stored.MaxDrawdown, replayed.MaxDrawdown, floatEquals(stored.MaxDrawdown, replayed.MaxDrawdown))
	check("WinRate", stored.WinRate, replayed.WinRate, floatEquals(stored.WinRate, replayed.WinRate))
	check("ProfitFactor", stored.ProfitFactor, replayed.ProfitFactor, floatEquals(stored.ProfitFactor, replayed.ProfitFactor))
	check("TotalTrades", stored.TotalTrades, replayed.TotalTrades, stored.TotalTrades == replayed.TotalTrades)
	check("AvgTradeDurationHours", stored.AvgTradeDurationHours, replayed.AvgTradeDurationHours,
		floatEquals(stored.AvgTradeDurationHours, replayed.AvgTradeDurationHours))

	storedCapital := detailFloat(stored.Detail, "final_capital")
	replayedCapital := detailFloat(replayed.Detail, "final_capital")
	check("Detail.final_capital", storedCapital, replayedCapital, floatEquals(storedCapital, replayedCapital))

	return divergences
}

func floatEquals(a, b float64) bool {
	if math.IsInf(a, 1) && math.IsInf(b, 1) {
		return true
	}
	return math.Abs(a-b) <= FloatTolerance
}

func detailFloat(detail map[string]any, key string) float64 {
	switch v := detail[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
