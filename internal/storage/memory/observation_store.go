// Package memory provides in-memory store implementations, used by tests
// and by runs that do not need durable storage.
package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.SentimentObservation // keyed by asset
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string][]*domain.SentimentObservation),
	}
}

// Insert adds a single observation.
func (s *ObservationStore) Insert(_ context.Context, o *domain.SentimentObservation) error {
	if o == nil || o.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	s.data[o.Asset] = append(s.data[o.Asset], &cp)
	return nil
}

// InsertBulk adds multiple observations. Fails entire batch on invalid input.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.SentimentObservation) error {
	if len(obs) == 0 {
		return nil
	}

	for _, o := range obs {
		if o == nil || o.Asset == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		cp := *o
		s.data[o.Asset] = append(s.data[o.Asset], &cp)
	}
	return nil
}

// GetByAsset retrieves all observations for an asset, ordered by timestamp ASC.
func (s *ObservationStore) GetByAsset(_ context.Context, asset string) ([]*domain.SentimentObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SentimentObservation, 0, len(s.data[asset]))
	for _, o := range s.data[asset] {
		cp := *o
		result = append(result, &cp)
	}

	sortObservations(result)
	return result, nil
}

// GetByTimeRange retrieves observations for an asset within [start, end] (inclusive).
func (s *ObservationStore) GetByTimeRange(_ context.Context, asset string, start, end int64) ([]*domain.SentimentObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SentimentObservation
	for _, o := range s.data[asset] {
		if o.TimestampMs >= start && o.TimestampMs <= end {
			cp := *o
			result = append(result, &cp)
		}
	}

	sortObservations(result)
	return result, nil
}

func sortObservations(obs []*domain.SentimentObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].TimestampMs != obs[j].TimestampMs {
			return obs[i].TimestampMs < obs[j].TimestampMs
		}
		return obs[i].Source < obs[j].Source
	})
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
