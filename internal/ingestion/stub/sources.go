// Package stub provides seeded synthetic feeds for demos and local runs.
// The streams are deterministic for a given seed so two runs against the
// same configuration produce the same observations.
package stub

import (
	"context"
	"math"
	"math/rand"
	"time"

	"sentiment-lab/internal/domain"
)

var sources = []domain.Source{
	domain.SourceSocialA,
	domain.SourceSocialB,
	domain.SourceNews,
	domain.SourceFinancial,
}

// SentimentSource emits synthetic sentiment observations on a fixed interval.
// Implements ingestion.SentimentSource.
type SentimentSource struct {
	symbols  []string
	interval time.Duration
	seed     int64
}

// NewSentimentSource creates a seeded synthetic sentiment feed.
func NewSentimentSource(symbols []string, interval time.Duration, seed int64) *SentimentSource {
	if interval <= 0 {
		interval = 1 * time.Second
	}
	return &SentimentSource{symbols: symbols, interval: interval, seed: seed}
}

// Name identifies the source in logs and metrics.
func (s *SentimentSource) Name() string {
	return "stub-sentiment"
}

// Subscribe starts the synthetic stream. One observation per symbol is
// emitted each interval; the score follows a slow sinusoidal regime with
// seeded noise so the composite index drifts between fear and greed.
func (s *SentimentSource) Subscribe(ctx context.Context) (<-chan *domain.SentimentObservation, error) {
	ch := make(chan *domain.SentimentObservation, len(s.symbols)*4)
	rng := rand.New(rand.NewSource(s.seed))

	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		step := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			nowMs := time.Now().UnixMilli()
			for _, symbol := range s.symbols {
				phase := float64(step) / 40.0
				score := 0.6*math.Sin(phase) + 0.25*rng.NormFloat64()
				if score > 1 {
					score = 1
				}
				if score < -1 {
					score = -1
				}

				obs := &domain.SentimentObservation{
					Asset:       symbol,
					TimestampMs: nowMs,
					Score:       score,
					Confidence:  0.5 + 0.45*rng.Float64(),
					VolumeProxy: 100 + 900*rng.Float64(),
					Source:      sources[rng.Intn(len(sources))],
				}

				select {
				case ch <- obs:
				case <-ctx.Done():
					return
				}
			}
			step++
		}
	}()

	return ch, nil
}

// MarketSource emits synthetic market ticks via a seeded random walk.
// Implements ingestion.MarketSource.
type MarketSource struct {
	symbols  []string
	interval time.Duration
	seed     int64
}

// NewMarketSource creates a seeded synthetic market feed.
func NewMarketSource(symbols []string, interval time.Duration, seed int64) *MarketSource {
	if interval <= 0 {
		interval = 1 * time.Second
	}
	return &MarketSource{symbols: symbols, interval: interval, seed: seed}
}

// Name identifies the source in logs and metrics.
func (s *MarketSource) Name() string {
	return "stub-market"
}

// Subscribe starts the synthetic tick stream.
func (s *MarketSource) Subscribe(ctx context.Context) (<-chan *domain.MarketObservation, error) {
	ch := make(chan *domain.MarketObservation, len(s.symbols)*4)
	rng := rand.New(rand.NewSource(s.seed))

	prices := make(map[string]float64, len(s.symbols))
	for _, symbol := range s.symbols {
		prices[symbol] = 100 + 49900*rng.Float64()
	}

	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			nowMs := time.Now().UnixMilli()
			for _, symbol := range s.symbols {
				price := prices[symbol] * (1 + 0.02*rng.NormFloat64())
				if price < 0.01 {
					price = 0.01
				}
				prices[symbol] = price

				tick := &domain.MarketObservation{
					Symbol:      symbol,
					TimestampMs: nowMs,
					Price:       price,
					Volume:      1e6 + 9.9e7*rng.Float64(),
					Change24h:   -0.15 + 0.3*rng.Float64(),
				}

				select {
				case ch <- tick:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
