package reporting

import (
	"fmt"
	"math"
	"strings"

	"sentiment-lab/internal/domain"
)

// RenderCSV renders result rows as CSV string.
func RenderCSV(rows []ResultRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("strategy_name,start_ms,end_ms,total_return,sharpe_ratio,max_drawdown,")
	sb.WriteString("win_rate,profit_factor,total_trades,avg_trade_duration_hours\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%s,%d,%.6f\n",
			r.StrategyName,
			r.StartMs,
			r.EndMs,
			r.TotalReturn,
			r.SharpeRatio,
			r.MaxDrawdown,
			r.WinRate,
			csvProfitFactor(r.ProfitFactor),
			r.TotalTrades,
			r.AvgTradeDurationHours,
		))
	}

	return sb.String()
}

// RenderEquityCSV renders an equity curve as CSV string.
func RenderEquityCSV(points []domain.EquityPoint) string {
	var sb strings.Builder

	sb.WriteString("timestamp_ms,equity,drawdown\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f\n", p.TimestampMs, p.Equity, p.Drawdown))
	}

	return sb.String()
}

func csvProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.6f", pf)
}
