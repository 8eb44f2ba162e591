package storage

import (
	"context"

	"sentiment-lab/internal/domain"
)

// ObservationStore provides access to sentiment_observations storage.
type ObservationStore interface {
	// Insert adds a single observation.
	Insert(ctx context.Context, o *domain.SentimentObservation) error

	// InsertBulk adds multiple observations. Fails entire batch on invalid input.
	InsertBulk(ctx context.Context, obs []*domain.SentimentObservation) error

	// GetByAsset retrieves all observations for an asset, ordered by timestamp ASC.
	GetByAsset(ctx context.Context, asset string) ([]*domain.SentimentObservation, error)

	// GetByTimeRange retrieves observations for an asset within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, asset string, start, end int64) ([]*domain.SentimentObservation, error)
}

// MarketStore provides access to market_observations storage.
type MarketStore interface {
	// Insert adds a single market observation.
	Insert(ctx context.Context, m *domain.MarketObservation) error

	// InsertBulk adds multiple observations. Fails entire batch on invalid input.
	InsertBulk(ctx context.Context, obs []*domain.MarketObservation) error

	// GetBySymbol retrieves all observations for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.MarketObservation, error)

	// GetByTimeRange retrieves observations for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.MarketObservation, error)
}

// IndexStore provides access to composite_index storage.
type IndexStore interface {
	// Insert adds a new index snapshot.
	Insert(ctx context.Context, idx *domain.CompositeIndex) error

	// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if empty.
	GetLatest(ctx context.Context) (*domain.CompositeIndex, error)

	// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CompositeIndex, error)
}

// SignalStore provides access to trading_signals storage.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.TradingSignal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.TradingSignal, error)

	// GetByAsset retrieves all signals for an asset, ordered by timestamp ASC.
	GetByAsset(ctx context.Context, asset string) ([]*domain.TradingSignal, error)

	// GetByTimeRange retrieves signals within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradingSignal, error)
}

// BacktestResultStore provides access to backtest_results storage.
type BacktestResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if (strategy, start, end) exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByStrategy retrieves all results for a strategy, ordered by start ASC.
	GetByStrategy(ctx context.Context, strategyName string) ([]*domain.BacktestResult, error)

	// GetAll retrieves all stored results, ordered by (strategy, start).
	GetAll(ctx context.Context) ([]*domain.BacktestResult, error)
}
