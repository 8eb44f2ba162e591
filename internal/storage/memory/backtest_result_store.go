package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// BacktestResultStore is an in-memory implementation of storage.BacktestResultStore.
type BacktestResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestResult // keyed by (strategy, start, end)
}

// NewBacktestResultStore creates a new in-memory backtest result store.
func NewBacktestResultStore() *BacktestResultStore {
	return &BacktestResultStore{
		data: make(map[string]*domain.BacktestResult),
	}
}

func resultKey(strategy string, startMs, endMs int64) string {
	return fmt.Sprintf("%s|%d|%d", strategy, startMs, endMs)
}

// Insert adds a new result. Returns ErrDuplicateKey if (strategy, start, end) exists.
func (s *BacktestResultStore) Insert(_ context.Context, r *domain.BacktestResult) error {
	if r == nil || r.StrategyName == "" {
		return storage.ErrInvalidInput
	}

	key := resultKey(r.StrategyName, r.StartMs, r.EndMs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyResult(r)
	return nil
}

// GetByStrategy retrieves all results for a strategy, ordered by start ASC.
func (s *BacktestResultStore) GetByStrategy(_ context.Context, strategyName string) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestResult
	for _, r := range s.data {
		if r.StrategyName == strategyName {
			result = append(result, copyResult(r))
		}
	}

	sortResults(result)
	return result, nil
}

// GetAll retrieves all stored results, ordered by (strategy, start).
func (s *BacktestResultStore) GetAll(_ context.Context) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BacktestResult, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyResult(r))
	}

	sortResults(result)
	return result, nil
}

func copyResult(r *domain.BacktestResult) *domain.BacktestResult {
	cp := *r
	if r.Detail != nil {
		cp.Detail = make(map[string]any, len(r.Detail))
		for k, v := range r.Detail {
			cp.Detail[k] = v
		}
	}
	return &cp
}

func sortResults(results []*domain.BacktestResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].StrategyName != results[j].StrategyName {
			return results[i].StrategyName < results[j].StrategyName
		}
		return results[i].StartMs < results[j].StartMs
	})
}

var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)
