package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// IndexStore is an in-memory implementation of storage.IndexStore.
type IndexStore struct {
	mu   sync.RWMutex
	data []*domain.CompositeIndex
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

// Insert adds a new index snapshot.
func (s *IndexStore) Insert(_ context.Context, idx *domain.CompositeIndex) error {
	if idx == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *idx
	s.data = append(s.data, &cp)
	return nil
}

// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if empty.
func (s *IndexStore) GetLatest(_ context.Context) (*domain.CompositeIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return nil, storage.ErrNotFound
	}

	latest := s.data[0]
	for _, idx := range s.data[1:] {
		if idx.TimestampMs >= latest.TimestampMs {
			latest = idx
		}
	}
	cp := *latest
	return &cp, nil
}

// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered by timestamp ASC.
func (s *IndexStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.CompositeIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CompositeIndex
	for _, idx := range s.data {
		if idx.TimestampMs >= start && idx.TimestampMs <= end {
			cp := *idx
			result = append(result, &cp)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

var _ storage.IndexStore = (*IndexStore)(nil)
