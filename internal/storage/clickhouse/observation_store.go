package clickhouse

import (
	"context"
	"fmt"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
// Sentiment observations are append-only; MergeTree does not enforce
// uniqueness and the feed may legitimately repeat readings.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// Insert adds a single observation.
func (s *ObservationStore) Insert(ctx context.Context, o *domain.SentimentObservation) error {
	if o == nil || o.Asset == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.SentimentObservation{o})
}

// InsertBulk adds multiple observations. Fails entire batch on invalid input.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.SentimentObservation) error {
	if len(obs) == 0 {
		return nil
	}

	for _, o := range obs {
		if o == nil || o.Asset == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO sentiment_observations (
			asset, timestamp_ms, score, confidence, volume_proxy, source
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.Asset, uint64(o.TimestampMs), o.Score, o.Confidence,
			o.VolumeProxy, string(o.Source),
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

// GetByAsset retrieves all observations for an asset, ordered by timestamp ASC.
func (s *ObservationStore) GetByAsset(ctx context.Context, asset string) ([]*domain.SentimentObservation, error) {
	query := `
		SELECT asset, timestamp_ms, score, confidence, volume_proxy, source
		FROM sentiment_observations
		WHERE asset = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, asset)
	if err != nil {
		return nil, fmt.Errorf("query by asset: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves observations for an asset within [start, end] (inclusive).
func (s *ObservationStore) GetByTimeRange(ctx context.Context, asset string, start, end int64) ([]*domain.SentimentObservation, error) {
	query := `
		SELECT asset, timestamp_ms, score, confidence, volume_proxy, source
		FROM sentiment_observations
		WHERE asset = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, asset, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func scanObservations(rows chRows) ([]*domain.SentimentObservation, error) {
	var obs []*domain.SentimentObservation

	for rows.Next() {
		var (
			o           domain.SentimentObservation
			timestampMs uint64
			source      string
		)
		err := rows.Scan(
			&o.Asset, &timestampMs, &o.Score, &o.Confidence,
			&o.VolumeProxy, &source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.TimestampMs = int64(timestampMs)
		o.Source = domain.Source(source)
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return obs, nil
}
