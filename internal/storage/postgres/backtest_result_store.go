package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

// BacktestResultStore implements storage.BacktestResultStore using PostgreSQL.
type BacktestResultStore struct {
	pool *Pool
}

// NewBacktestResultStore creates a new BacktestResultStore.
func NewBacktestResultStore(pool *Pool) *BacktestResultStore {
	return &BacktestResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)

const resultColumns = `
	strategy_name, start_ms, end_ms, total_return, sharpe_ratio,
	max_drawdown, win_rate, profit_factor, total_trades,
	avg_trade_duration_hours, detail
`

// Insert adds a new result. Returns ErrDuplicateKey if (strategy, start, end) exists.
// profit_factor may be +Infinity; float8 stores it natively.
func (s *BacktestResultStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	if r == nil || r.StrategyName == "" {
		return storage.ErrInvalidInput
	}

	var detail []byte
	if r.Detail != nil {
		raw, err := json.Marshal(r.Detail)
		if err != nil {
			return fmt.Errorf("marshal result detail: %w", err)
		}
		detail = raw
	}

	query := `
		INSERT INTO backtest_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		r.StrategyName, r.StartMs, r.EndMs, r.TotalReturn, r.SharpeRatio,
		r.MaxDrawdown, r.WinRate, r.ProfitFactor, r.TotalTrades,
		r.AvgTradeDurationHours, detail,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest result: %w", err)
	}
	return nil
}

// GetByStrategy retrieves all results for a strategy, ordered by start ASC.
func (s *BacktestResultStore) GetByStrategy(ctx context.Context, strategyName string) ([]*domain.BacktestResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM backtest_results
		WHERE strategy_name = $1
		ORDER BY start_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyName)
	if err != nil {
		return nil, fmt.Errorf("get results by strategy: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetAll retrieves all stored results, ordered by (strategy, start).
func (s *BacktestResultStore) GetAll(ctx context.Context) ([]*domain.BacktestResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM backtest_results
		ORDER BY strategy_name ASC, start_ms ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func scanResults(rows pgx.Rows) ([]*domain.BacktestResult, error) {
	var results []*domain.BacktestResult

	for rows.Next() {
		var (
			r      domain.BacktestResult
			detail []byte
		)
		err := rows.Scan(
			&r.StrategyName, &r.StartMs, &r.EndMs, &r.TotalReturn, &r.SharpeRatio,
			&r.MaxDrawdown, &r.WinRate, &r.ProfitFactor, &r.TotalTrades,
			&r.AvgTradeDurationHours, &detail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &r.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal result detail: %w", err)
			}
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	return results, nil
}
