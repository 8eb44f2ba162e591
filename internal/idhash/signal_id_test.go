package idhash

import (
	"testing"

	"sentiment-lab/internal/domain"
)

func TestComputeSignalID(t *testing.T) {
	tests := []struct {
		name        string
		asset       string
		direction   domain.Direction
		timestampMs int64
		wantLen     int // hash length should be 64
	}{
		{
			name:        "buy signal",
			asset:       "BTC",
			direction:   domain.DirectionBuy,
			timestampMs: 1704067234567,
			wantLen:     64,
		},
		{
			name:        "sell signal",
			asset:       "ETH",
			direction:   domain.DirectionSell,
			timestampMs: 1704067300000,
			wantLen:     64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSignalID(tt.asset, tt.direction, tt.timestampMs)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeSignalID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeSignalID(tt.asset, tt.direction, tt.timestampMs)
			if got != got2 {
				t.Errorf("ComputeSignalID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeSignalID_Uniqueness(t *testing.T) {
	base := ComputeSignalID("BTC", domain.DirectionBuy, 1704067234567)

	variants := []string{
		ComputeSignalID("ETH", domain.DirectionBuy, 1704067234567),
		ComputeSignalID("BTC", domain.DirectionSell, 1704067234567),
		ComputeSignalID("BTC", domain.DirectionBuy, 1704067234568),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d: expected different hash for different inputs", i)
		}
	}
}
