package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradingSignal // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.TradingSignal),
	}
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.TradingSignal) error {
	if sig == nil || sig.SignalID == "" || sig.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *sig
	s.data[sig.SignalID] = &cp
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.TradingSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, ok := s.data[signalID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *sig
	return &cp, nil
}

// GetByAsset retrieves all signals for an asset, ordered by timestamp ASC.
func (s *SignalStore) GetByAsset(_ context.Context, asset string) ([]*domain.TradingSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradingSignal
	for _, sig := range s.data {
		if sig.Asset == asset {
			cp := *sig
			result = append(result, &cp)
		}
	}

	sortSignals(result)
	return result, nil
}

// GetByTimeRange retrieves signals within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SignalStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TradingSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradingSignal
	for _, sig := range s.data {
		if sig.TimestampMs >= start && sig.TimestampMs <= end {
			cp := *sig
			result = append(result, &cp)
		}
	}

	sortSignals(result)
	return result, nil
}

func sortSignals(signals []*domain.TradingSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].TimestampMs != signals[j].TimestampMs {
			return signals[i].TimestampMs < signals[j].TimestampMs
		}
		return signals[i].SignalID < signals[j].SignalID
	})
}

var _ storage.SignalStore = (*SignalStore)(nil)
