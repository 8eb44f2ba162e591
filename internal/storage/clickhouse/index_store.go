package clickhouse

import (
	"context"
	"fmt"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// IndexStore implements storage.IndexStore using ClickHouse.
type IndexStore struct {
	conn *Conn
}

// NewIndexStore creates a new IndexStore.
func NewIndexStore(conn *Conn) *IndexStore {
	return &IndexStore{conn: conn}
}

// Compile-time interface check.
var _ storage.IndexStore = (*IndexStore)(nil)

const indexColumns = `
	timestamp_ms, overall_score, sentiment_component, momentum_component,
	volume_component, correlation_component, classification
`

// Insert adds a new index snapshot.
func (s *IndexStore) Insert(ctx context.Context, idx *domain.CompositeIndex) error {
	if idx == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO composite_index (` + indexColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		uint64(idx.TimestampMs), idx.OverallScore,
		idx.SentimentComponent, idx.MomentumComponent,
		idx.VolumeComponent, idx.CorrelationComponent,
		string(idx.Classification),
	)
	if err != nil {
		return fmt.Errorf("insert composite index: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if empty.
func (s *IndexStore) GetLatest(ctx context.Context) (*domain.CompositeIndex, error) {
	query := `
		SELECT ` + indexColumns + `
		FROM composite_index
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest index: %w", err)
	}
	defer rows.Close()

	snapshots, err := scanIndexes(rows)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, storage.ErrNotFound
	}
	return snapshots[0], nil
}

// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered by timestamp ASC.
func (s *IndexStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CompositeIndex, error) {
	query := `
		SELECT ` + indexColumns + `
		FROM composite_index
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query index by time range: %w", err)
	}
	defer rows.Close()

	return scanIndexes(rows)
}

func scanIndexes(rows chRows) ([]*domain.CompositeIndex, error) {
	var snapshots []*domain.CompositeIndex

	for rows.Next() {
		var (
			idx            domain.CompositeIndex
			timestampMs    uint64
			classification string
		)
		err := rows.Scan(
			&timestampMs, &idx.OverallScore,
			&idx.SentimentComponent, &idx.MomentumComponent,
			&idx.VolumeComponent, &idx.CorrelationComponent,
			&classification,
		)
		if err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}

		idx.TimestampMs = int64(timestampMs)
		idx.Classification = domain.Classification(classification)
		snapshots = append(snapshots, &idx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}

	return snapshots, nil
}
