package signal

import (
	"fmt"
	"math"
	"strings"

	"sentiment-lab/internal/domain"
)

// reasoning composes the audit trail for a signal: sentiment direction and
// magnitude, mention count, momentum direction when meaningful, the
// composite index reading, and a one-line rationale per direction. It is
// deterministic for identical inputs and never drives control flow.
func reasoning(short *domain.AggregatedWindow, index *domain.CompositeIndex, direction domain.Direction) string {
	var parts []string

	sentimentDesc := "negative"
	if short.MeanScore > 0 {
		sentimentDesc = "positive"
	}
	parts = append(parts, fmt.Sprintf("Short-term sentiment is %s (%.2f) with %d mentions",
		sentimentDesc, short.MeanScore, short.SampleCount))

	if math.Abs(short.Momentum) > 0.1 {
		momentumDesc := "decreasing"
		if short.Momentum > 0 {
			momentumDesc = "increasing"
		}
		parts = append(parts, fmt.Sprintf("Sentiment momentum is %s", momentumDesc))
	}

	parts = append(parts, fmt.Sprintf("Fear & Greed Index: %.1f (%s)",
		index.OverallScore, index.Classification.Label()))

	switch direction {
	case domain.DirectionBuy:
		parts = append(parts, "Bullish sentiment conditions suggest buying opportunity")
	case domain.DirectionSell:
		parts = append(parts, "Bearish sentiment conditions suggest selling opportunity")
	default:
		parts = append(parts, "Mixed sentiment suggests holding current position")
	}

	return strings.Join(parts, ". ") + "."
}
