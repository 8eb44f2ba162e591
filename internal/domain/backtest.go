package domain

// EquityPoint is one sample of the backtest equity curve.
type EquityPoint struct {
	TimestampMs int64
	Equity      float64
	Drawdown    float64 // (peak - equity) / peak, always >= 0
}

// BacktestResult is the immutable summary of one backtest run.
type BacktestResult struct {
	StrategyName string
	StartMs      int64
	EndMs        int64

	TotalReturn float64
	// SharpeRatio is mean(returns)/stddev(returns)*sqrt(252), 0 when the
	// standard deviation is zero or no returns were recorded.
	SharpeRatio float64
	MaxDrawdown float64
	WinRate     float64
	// ProfitFactor is totalProfit/totalLoss, +Inf with at least one winning
	// trade and no losing ones, 0 with no trades.
	ProfitFactor          float64
	TotalTrades           int
	AvgTradeDurationHours float64

	Detail map[string]any
}
