package ingestion

import "sync"

// PriceBook holds the most recent observed price per symbol. It backs the
// signal synthesizer's price lookups during live evaluation.
type PriceBook struct {
	mu     sync.RWMutex
	latest map[string]float64
}

// NewPriceBook creates an empty price book.
func NewPriceBook() *PriceBook {
	return &PriceBook{latest: make(map[string]float64)}
}

// Update records the latest price for a symbol.
func (b *PriceBook) Update(symbol string, price float64) {
	if symbol == "" || price <= 0 {
		return
	}
	b.mu.Lock()
	b.latest[symbol] = price
	b.mu.Unlock()
}

// LatestPrice returns the most recent price for a symbol, false if the
// symbol has not been observed yet.
func (b *PriceBook) LatestPrice(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	price, ok := b.latest[symbol]
	return price, ok
}
