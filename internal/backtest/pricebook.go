package backtest

import (
	"sort"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/lookup"
)

// priceBook holds per-asset market series sorted by timestamp and answers
// point-in-time price queries for the simulation clock.
type priceBook struct {
	series map[string][]*domain.MarketObservation
}

func newPriceBook(prices map[string][]*domain.MarketObservation) *priceBook {
	series := make(map[string][]*domain.MarketObservation, len(prices))
	for asset, obs := range prices {
		sorted := make([]*domain.MarketObservation, len(obs))
		copy(sorted, obs)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].TimestampMs < sorted[j].TimestampMs
		})
		series[asset] = sorted
	}
	return &priceBook{series: series}
}

// PriceAt returns the price at or before t for the asset. False means the
// asset has no data yet at t, so no trade can reference it.
func (b *priceBook) PriceAt(asset string, t int64) (float64, bool) {
	price, err := lookup.PriceAt(t, b.series[asset])
	if err != nil {
		return 0, false
	}
	return price, true
}
