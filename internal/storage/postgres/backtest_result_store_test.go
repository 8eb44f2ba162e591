package postgres

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/storage"
)

func TestBacktestResultStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestResultStore(pool)
	ctx := context.Background()

	r := &domain.BacktestResult{
		StrategyName:          "sentiment-composite",
		StartMs:               0,
		EndMs:                 86_400_000,
		TotalReturn:           0.034,
		SharpeRatio:           1.21,
		MaxDrawdown:           0.08,
		WinRate:               0.6,
		ProfitFactor:          1.9,
		TotalTrades:           10,
		AvgTradeDurationHours: 4.5,
		Detail: map[string]any{
			"largest_win":          0.12,
			"max_consecutive_wins": float64(3),
		},
	}

	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByStrategy(ctx, "sentiment-composite")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.InDelta(t, 0.034, got[0].TotalReturn, 1e-9)
	assert.Equal(t, 10, got[0].TotalTrades)
	assert.InDelta(t, 0.12, got[0].Detail["largest_win"].(float64), 1e-9)
}

func TestBacktestResultStore_InfiniteProfitFactor(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestResultStore(pool)
	ctx := context.Background()

	r := &domain.BacktestResult{
		StrategyName: "all-wins",
		StartMs:      0,
		EndMs:        1000,
		WinRate:      1,
		ProfitFactor: math.Inf(1),
		TotalTrades:  3,
	}
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByStrategy(ctx, "all-wins")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, math.IsInf(got[0].ProfitFactor, 1))
}

func TestBacktestResultStore_DuplicateKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestResultStore(pool)
	ctx := context.Background()

	r := &domain.BacktestResult{StrategyName: "s", StartMs: 1, EndMs: 2}
	require.NoError(t, store.Insert(ctx, r))
	assert.ErrorIs(t, store.Insert(ctx, r), storage.ErrDuplicateKey)

	// Same strategy on a different window is a new row
	other := &domain.BacktestResult{StrategyName: "s", StartMs: 3, EndMs: 4}
	require.NoError(t, store.Insert(ctx, other))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
