package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", len(r.Results)))

	// Performance table
	sb.WriteString("## Performance\n\n")
	if len(r.Results) > 0 {
		sb.WriteString("| Strategy | Start (ms) | End (ms) | Return | Sharpe | MaxDD | WinRate | ProfitFactor | Trades | AvgHold (h) |\n")
		sb.WriteString("|----------|-----------|----------|--------|--------|-------|---------|--------------|--------|-------------|\n")
		for _, row := range r.Results {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %s | %d | %.2f |\n",
				row.StrategyName, row.StartMs, row.EndMs,
				row.TotalReturn, row.SharpeRatio, row.MaxDrawdown, row.WinRate,
				formatProfitFactor(row.ProfitFactor), row.TotalTrades, row.AvgTradeDurationHours))
		}
	} else {
		sb.WriteString("No backtest results available.\n")
	}
	sb.WriteString("\n")

	// Trade breakdown
	sb.WriteString("## Trade Breakdown\n\n")
	if len(r.Details) > 0 {
		sb.WriteString("| Strategy | Final Capital | Largest Win | Largest Loss | Avg Win | Avg Loss | Win Streak | Loss Streak |\n")
		sb.WriteString("|----------|---------------|-------------|--------------|---------|----------|------------|-------------|\n")
		for _, d := range r.Details {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.4f | %.4f | %.4f | %.4f | %d | %d |\n",
				d.StrategyName, d.FinalCapital,
				d.LargestWin, d.LargestLoss, d.AvgWin, d.AvgLoss,
				d.MaxConsecutiveWins, d.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No trade breakdown available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatProfitFactor keeps the infinite case readable in tables.
func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", pf)
}
