// Package reporting renders backtest results as Markdown and CSV.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// Generator builds reports from stored backtest results.
type Generator struct {
	resultStore storage.BacktestResultStore
}

// NewGenerator creates a report generator.
func NewGenerator(resultStore storage.BacktestResultStore) *Generator {
	return &Generator{resultStore: resultStore}
}

// Generate builds a report over every stored result.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	results, err := g.resultStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return BuildReport(results), nil
}

// GenerateForStrategy builds a report restricted to one strategy.
func (g *Generator) GenerateForStrategy(ctx context.Context, strategyName string) (*Report, error) {
	results, err := g.resultStore.GetByStrategy(ctx, strategyName)
	if err != nil {
		return nil, fmt.Errorf("load results for %s: %w", strategyName, err)
	}
	return BuildReport(results), nil
}

// BuildReport assembles a Report from results without touching storage.
// Rows are ordered by (strategy_name, start_ms, end_ms) so rendering is
// deterministic regardless of store iteration order.
func BuildReport(results []*domain.BacktestResult) *Report {
	sorted := make([]*domain.BacktestResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.StrategyName != b.StrategyName {
			return a.StrategyName < b.StrategyName
		}
		if a.StartMs != b.StartMs {
			return a.StartMs < b.StartMs
		}
		return a.EndMs < b.EndMs
	})

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Title:       "Backtest Report",
	}

	for _, r := range sorted {
		report.Results = append(report.Results, ResultRow{
			StrategyName:          r.StrategyName,
			StartMs:               r.StartMs,
			EndMs:                 r.EndMs,
			TotalReturn:           r.TotalReturn,
			SharpeRatio:           r.SharpeRatio,
			MaxDrawdown:           r.MaxDrawdown,
			WinRate:               r.WinRate,
			ProfitFactor:          r.ProfitFactor,
			TotalTrades:           r.TotalTrades,
			AvgTradeDurationHours: r.AvgTradeDurationHours,
		})
		report.Details = append(report.Details, detailSection(r))
	}

	return report
}

func detailSection(r *domain.BacktestResult) DetailSection {
	return DetailSection{
		StrategyName:         r.StrategyName,
		FinalCapital:         detailFloat(r.Detail, "final_capital"),
		LargestWin:           detailFloat(r.Detail, "largest_win"),
		LargestLoss:          detailFloat(r.Detail, "largest_loss"),
		AvgWin:               detailFloat(r.Detail, "avg_win"),
		AvgLoss:              detailFloat(r.Detail, "avg_loss"),
		MaxConsecutiveWins:   detailInt(r.Detail, "max_consecutive_wins"),
		MaxConsecutiveLosses: detailInt(r.Detail, "max_consecutive_losses"),
	}
}

// detailFloat reads a numeric detail value. Results loaded from JSONB
// carry float64 for every number; freshly computed ones may carry int.
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

func detailInt(detail map[string]any, key string) int {
	switch v := detail[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
