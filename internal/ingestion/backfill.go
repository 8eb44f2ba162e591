package ingestion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/aggregator"
	"sentiment-lab/internal/storage"
)

// Backfill replays stored observations into the aggregator so the sliding
// window is warm before live ingestion starts. Observations are loaded per
// asset in timestamp order, matching how the live feed would have arrived.
func Backfill(ctx context.Context, store storage.ObservationStore, agg *aggregator.Aggregator, assets []string, startMs, endMs int64, logger zerolog.Logger) error {
	if store == nil || agg == nil {
		return fmt.Errorf("backfill: store and aggregator are required")
	}

	total := 0
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}

		obs, err := store.GetByTimeRange(ctx, asset, startMs, endMs)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", asset, err)
		}

		for _, o := range obs {
			agg.Add(*o)
		}
		total += len(obs)
	}

	logger.Info().
		Int("observations", total).
		Int("assets", len(assets)).
		Int64("start_ms", startMs).
		Int64("end_ms", endMs).
		Msg("backfill complete")
	return nil
}
