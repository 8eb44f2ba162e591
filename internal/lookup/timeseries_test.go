package lookup

import (
	"testing"

	"sentiment-lab/internal/domain"
)

func TestPriceAt_EmptySlice(t *testing.T) {
	_, err := PriceAt(1000, nil)
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}

	_, err = PriceAt(1000, []*domain.MarketObservation{})
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestPriceAt_ExactMatch(t *testing.T) {
	series := []*domain.MarketObservation{
		{Symbol: "BTC", TimestampMs: 1000, Price: 1.0},
		{Symbol: "BTC", TimestampMs: 2000, Price: 2.0},
		{Symbol: "BTC", TimestampMs: 3000, Price: 3.0},
	}

	price, err := PriceAt(2000, series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 2.0 {
		t.Errorf("expected 2.0, got %f", price)
	}
}

func TestPriceAt_BeforeTarget(t *testing.T) {
	series := []*domain.MarketObservation{
		{Symbol: "BTC", TimestampMs: 1000, Price: 1.0},
		{Symbol: "BTC", TimestampMs: 2000, Price: 2.0},
		{Symbol: "BTC", TimestampMs: 3000, Price: 3.0},
	}

	// Target 2500 should return price at 2000
	price, err := PriceAt(2500, series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 2.0 {
		t.Errorf("expected 2.0, got %f", price)
	}
}

func TestPriceAt_BeforeFirst(t *testing.T) {
	series := []*domain.MarketObservation{
		{Symbol: "BTC", TimestampMs: 1000, Price: 1.0},
		{Symbol: "BTC", TimestampMs: 2000, Price: 2.0},
	}

	// Target 500 predates all data, must not leak a future price
	_, err := PriceAt(500, series)
	if err != ErrNoPriceBefore {
		t.Errorf("expected ErrNoPriceBefore, got %v", err)
	}
}

func TestPriceAt_AfterLast(t *testing.T) {
	series := []*domain.MarketObservation{
		{Symbol: "BTC", TimestampMs: 1000, Price: 1.0},
		{Symbol: "BTC", TimestampMs: 2000, Price: 2.0},
		{Symbol: "BTC", TimestampMs: 3000, Price: 3.0},
	}

	// Target 5000 should return last price (3.0)
	price, err := PriceAt(5000, series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 3.0 {
		t.Errorf("expected 3.0, got %f", price)
	}
}

func TestObservationAt_EmptySlice(t *testing.T) {
	_, err := ObservationAt(1000, nil)
	if err != ErrNoMarketData {
		t.Errorf("expected ErrNoMarketData, got %v", err)
	}
}

func TestObservationAt_ExactMatch(t *testing.T) {
	series := []*domain.MarketObservation{
		{Symbol: "ETH", TimestampMs: 1000, Price: 1.0, Volume: 100},
		{Symbol: "ETH", TimestampMs: 2000, Price: 2.0, Volume: 200},
	}

	obs, err := ObservationAt(2000, series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Volume != 200 {
		t.Errorf("expected volume 200, got %f", obs.Volume)
	}
}

func TestObservationAt_BeforeFirst(t *testing.T) {
	series := []*domain.MarketObservation{
		{Symbol: "ETH", TimestampMs: 1000, Price: 1.0},
	}

	_, err := ObservationAt(500, series)
	if err != ErrNoMarketBefore {
		t.Errorf("expected ErrNoMarketBefore, got %v", err)
	}
}
