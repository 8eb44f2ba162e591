// Package ingestion connects external sentiment and market feeds to the
// aggregator and the observation stores. Each source runs as a supervised
// task; malformed records are validated and dropped at this boundary so
// the core never sees them.
package ingestion

import (
	"context"

	"sentiment-lab/internal/domain"
)

// SentimentSource provides a stream of sentiment observations.
type SentimentSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Subscribe returns a channel of observations. The channel is closed
	// when the context is cancelled or the source fails; the supervisor
	// resubscribes with backoff.
	Subscribe(ctx context.Context) (<-chan *domain.SentimentObservation, error)
}

// MarketSource provides a stream of market observations.
type MarketSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Subscribe returns a channel of market observations. Same lifecycle
	// contract as SentimentSource.Subscribe.
	Subscribe(ctx context.Context) (<-chan *domain.MarketObservation, error)
}
