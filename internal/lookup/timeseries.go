// Package lookup provides point-in-time queries over market observation
// series. Series are expected to be sorted by timestamp ascending.
package lookup

import (
	"errors"

	"sentiment-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoPriceData    = errors.New("no price data available")
	ErrNoPriceBefore  = errors.New("no price at or before target time")
	ErrNoMarketData   = errors.New("no market data available")
	ErrNoMarketBefore = errors.New("no market observation at or before target time")
)

// PriceAt returns the closest price at or before the target timestamp.
// A target earlier than the first sample returns ErrNoPriceBefore so a
// replay never reads a price from its own future.
func PriceAt(target int64, series []*domain.MarketObservation) (float64, error) {
	if len(series) == 0 {
		return 0, ErrNoPriceData
	}

	for i := len(series) - 1; i >= 0; i-- {
		if series[i].TimestampMs <= target {
			return series[i].Price, nil
		}
	}
	return 0, ErrNoPriceBefore
}

// ObservationAt returns the full observation at or before the target
// timestamp, for callers that need volume or 24h change alongside price.
func ObservationAt(target int64, series []*domain.MarketObservation) (*domain.MarketObservation, error) {
	if len(series) == 0 {
		return nil, ErrNoMarketData
	}

	for i := len(series) - 1; i >= 0; i-- {
		if series[i].TimestampMs <= target {
			return series[i], nil
		}
	}
	return nil, ErrNoMarketBefore
}
