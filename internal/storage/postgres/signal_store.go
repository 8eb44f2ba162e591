package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	signal_id, asset, timestamp_ms, direction, confidence, strength,
	target_price, stop_loss, take_profit, risk_reward_ratio,
	position_size_fraction, reasoning, supporting_data
`

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.TradingSignal) error {
	if sig == nil || sig.SignalID == "" || sig.Asset == "" {
		return storage.ErrInvalidInput
	}

	supporting, err := marshalSupportingData(sig.SupportingData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trading_signals (` + signalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		sig.SignalID, sig.Asset, sig.TimestampMs, string(sig.Direction),
		sig.Confidence, sig.Strength,
		sig.TargetPrice, sig.StopLoss, sig.TakeProfit, sig.RiskRewardRatio,
		sig.PositionSizeFraction, sig.Reasoning, supporting,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trading signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.TradingSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM trading_signals WHERE signal_id = $1`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetByAsset retrieves all signals for an asset, ordered by timestamp ASC.
func (s *SignalStore) GetByAsset(ctx context.Context, asset string) ([]*domain.TradingSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM trading_signals
		WHERE asset = $1
		ORDER BY timestamp_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asset)
	if err != nil {
		return nil, fmt.Errorf("get signals by asset: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetByTimeRange retrieves signals within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SignalStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradingSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM trading_signals
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY timestamp_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get signals by time range: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

func marshalSupportingData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal supporting data: %w", err)
	}
	return raw, nil
}

func scanSignal(row pgx.Row) (*domain.TradingSignal, error) {
	var (
		sig        domain.TradingSignal
		direction  string
		supporting []byte
	)

	err := row.Scan(
		&sig.SignalID, &sig.Asset, &sig.TimestampMs, &direction,
		&sig.Confidence, &sig.Strength,
		&sig.TargetPrice, &sig.StopLoss, &sig.TakeProfit, &sig.RiskRewardRatio,
		&sig.PositionSizeFraction, &sig.Reasoning, &supporting,
	)
	if err != nil {
		return nil, err
	}

	sig.Direction = domain.Direction(direction)
	if len(supporting) > 0 {
		if err := json.Unmarshal(supporting, &sig.SupportingData); err != nil {
			return nil, fmt.Errorf("unmarshal supporting data: %w", err)
		}
	}
	return &sig, nil
}

func scanSignals(rows pgx.Rows) ([]*domain.TradingSignal, error) {
	var signals []*domain.TradingSignal

	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
