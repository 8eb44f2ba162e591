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

func TestSignalStore_InsertAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	sig := &domain.TradingSignal{
		SignalID:             "sig-1",
		Asset:                "BTC",
		TimestampMs:          1704067200000,
		Direction:            domain.DirectionBuy,
		Confidence:           0.85,
		Strength:             0.7,
		TargetPrice:          ptr(105.0),
		StopLoss:             ptr(95.0),
		TakeProfit:           ptr(115.0),
		RiskRewardRatio:      ptr(3.0),
		PositionSizeFraction: 0.06,
		Reasoning:            "Short-term sentiment is bullish (0.45) with 12 mentions.",
		SupportingData: map[string]any{
			"fear_greed_index": 72.5,
			"sample_count":     float64(12),
		},
	}

	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.GetByID(ctx, "sig-1")
	require.NoError(t, err)

	assert.Equal(t, sig.Asset, got.Asset)
	assert.Equal(t, domain.DirectionBuy, got.Direction)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	require.NotNil(t, got.TakeProfit)
	assert.InDelta(t, 115.0, *got.TakeProfit, 1e-9)
	assert.Equal(t, sig.Reasoning, got.Reasoning)
	assert.InDelta(t, 72.5, got.SupportingData["fear_greed_index"].(float64), 1e-9)
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	sig := &domain.TradingSignal{
		SignalID:    "dup-1",
		Asset:       "ETH",
		TimestampMs: 1000,
		Direction:   domain.DirectionSell,
	}

	require.NoError(t, store.Insert(ctx, sig))
	assert.ErrorIs(t, store.Insert(ctx, sig), storage.ErrDuplicateKey)
}

func TestSignalStore_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_QueriesOrdered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	for _, s := range []struct {
		id    string
		asset string
		ts    int64
	}{
		{"s-3", "BTC", 3000},
		{"s-1", "BTC", 1000},
		{"s-2", "ETH", 2000},
	} {
		require.NoError(t, store.Insert(ctx, &domain.TradingSignal{
			SignalID:    s.id,
			Asset:       s.asset,
			TimestampMs: s.ts,
			Direction:   domain.DirectionHold,
		}))
	}

	byAsset, err := store.GetByAsset(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, byAsset, 2)
	assert.Equal(t, "s-1", byAsset[0].SignalID)
	assert.Equal(t, "s-3", byAsset[1].SignalID)

	// Nil optional fields survive the round trip
	assert.Nil(t, byAsset[0].TargetPrice)
	assert.Nil(t, byAsset[0].StopLoss)

	inRange, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	assert.Equal(t, "s-1", inRange[0].SignalID)
	assert.Equal(t, "s-2", inRange[1].SignalID)
}

func TestSignalStore_FractionBounds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	sig := &domain.TradingSignal{
		SignalID:             "frac-1",
		Asset:                "TSLA",
		TimestampMs:          5000,
		Direction:            domain.DirectionBuy,
		Confidence:           1.0,
		Strength:             1.0,
		PositionSizeFraction: 0.1,
	}
	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.GetByID(ctx, "frac-1")
	require.NoError(t, err)
	assert.True(t, got.PositionSizeFraction >= 0 && got.PositionSizeFraction <= 1)
	assert.False(t, math.IsNaN(got.Confidence))
}
