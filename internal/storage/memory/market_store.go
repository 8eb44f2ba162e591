package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// MarketStore is an in-memory implementation of storage.MarketStore.
type MarketStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.MarketObservation // keyed by symbol
}

// NewMarketStore creates a new in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{
		data: make(map[string][]*domain.MarketObservation),
	}
}

// Insert adds a single market observation.
func (s *MarketStore) Insert(_ context.Context, m *domain.MarketObservation) error {
	if m == nil || m.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	s.data[m.Symbol] = append(s.data[m.Symbol], &cp)
	return nil
}

// InsertBulk adds multiple observations. Fails entire batch on invalid input.
func (s *MarketStore) InsertBulk(_ context.Context, obs []*domain.MarketObservation) error {
	if len(obs) == 0 {
		return nil
	}

	for _, m := range obs {
		if m == nil || m.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range obs {
		cp := *m
		s.data[m.Symbol] = append(s.data[m.Symbol], &cp)
	}
	return nil
}

// GetBySymbol retrieves all observations for a symbol, ordered by timestamp ASC.
func (s *MarketStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.MarketObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MarketObservation, 0, len(s.data[symbol]))
	for _, m := range s.data[symbol] {
		cp := *m
		result = append(result, &cp)
	}

	sortMarket(result)
	return result, nil
}

// GetByTimeRange retrieves observations for a symbol within [start, end] (inclusive).
func (s *MarketStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.MarketObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MarketObservation
	for _, m := range s.data[symbol] {
		if m.TimestampMs >= start && m.TimestampMs <= end {
			cp := *m
			result = append(result, &cp)
		}
	}

	sortMarket(result)
	return result, nil
}

func sortMarket(obs []*domain.MarketObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].TimestampMs < obs[j].TimestampMs
	})
}

var _ storage.MarketStore = (*MarketStore)(nil)
