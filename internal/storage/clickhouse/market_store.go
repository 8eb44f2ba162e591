package clickhouse

import (
	"context"
	"fmt"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// MarketStore implements storage.MarketStore using ClickHouse.
type MarketStore struct {
	conn *Conn
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(conn *Conn) *MarketStore {
	return &MarketStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MarketStore = (*MarketStore)(nil)

// Insert adds a single market observation.
func (s *MarketStore) Insert(ctx context.Context, m *domain.MarketObservation) error {
	if m == nil || m.Symbol == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.MarketObservation{m})
}

// InsertBulk adds multiple observations. Fails entire batch on invalid input.
func (s *MarketStore) InsertBulk(ctx context.Context, obs []*domain.MarketObservation) error {
	if len(obs) == 0 {
		return nil
	}

	for _, m := range obs {
		if m == nil || m.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_observations (
			symbol, timestamp_ms, price, volume, change_24h
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range obs {
		err = batch.Append(
			m.Symbol, uint64(m.TimestampMs), m.Price, m.Volume, m.Change24h,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all observations for a symbol, ordered by timestamp ASC.
func (s *MarketStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.MarketObservation, error) {
	query := `
		SELECT symbol, timestamp_ms, price, volume, change_24h
		FROM market_observations
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanMarket(rows)
}

// GetByTimeRange retrieves observations for a symbol within [start, end] (inclusive).
func (s *MarketStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.MarketObservation, error) {
	query := `
		SELECT symbol, timestamp_ms, price, volume, change_24h
		FROM market_observations
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanMarket(rows)
}

func scanMarket(rows chRows) ([]*domain.MarketObservation, error) {
	var obs []*domain.MarketObservation

	for rows.Next() {
		var (
			m           domain.MarketObservation
			timestampMs uint64
		)
		err := rows.Scan(&m.Symbol, &timestampMs, &m.Price, &m.Volume, &m.Change24h)
		if err != nil {
			return nil, fmt.Errorf("scan market row: %w", err)
		}

		m.TimestampMs = int64(timestampMs)
		obs = append(obs, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market rows: %w", err)
	}

	return obs, nil
}
