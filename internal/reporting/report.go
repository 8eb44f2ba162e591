package reporting

import "time"

// Report is the rendered summary of one or more backtest runs.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Title       string

	// Performance rows, sorted by (strategy_name, start_ms, end_ms).
	Results []ResultRow

	// Detail sections aligned with Results by index.
	Details []DetailSection
}

// ResultRow is one line of the performance table.
type ResultRow struct {
	StrategyName          string
	StartMs               int64
	EndMs                 int64
	TotalReturn           float64
	SharpeRatio           float64
	MaxDrawdown           float64
	WinRate               float64
	ProfitFactor          float64 // +Inf when there are wins and no losses
	TotalTrades           int
	AvgTradeDurationHours float64
}

// DetailSection holds the per-run trade breakdown.
type DetailSection struct {
	StrategyName         string
	FinalCapital         float64
	LargestWin           float64
	LargestLoss          float64
	AvgWin               float64
	AvgLoss              float64
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
}
