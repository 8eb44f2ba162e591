package backtest

import (
	"math"
	"math/rand"

	"sentiment-lab/internal/domain"
)

// SyntheticGenerator produces seeded demo data so a full backtest can run
// without any live feed. The same seed always yields the same series.
type SyntheticGenerator struct {
	rng     *rand.Rand
	symbols []string

	prices       map[string]float64
	volatilities map[string]float64
}

func NewSyntheticGenerator(seed int64, symbols []string) *SyntheticGenerator {
	rng := rand.New(rand.NewSource(seed))
	g := &SyntheticGenerator{
		rng:          rng,
		symbols:      symbols,
		prices:       make(map[string]float64, len(symbols)),
		volatilities: make(map[string]float64, len(symbols)),
	}
	for _, s := range symbols {
		g.prices[s] = 100 + rng.Float64()*(50_000-100)
		g.volatilities[s] = 0.02 + rng.Float64()*0.03
	}
	return g
}

// MarketSeries walks each symbol's price from startMs to endMs at the given
// step. Steps are normal draws scaled by the symbol's volatility, with a
// floor so prices stay positive.
func (g *SyntheticGenerator) MarketSeries(startMs, endMs, stepMs int64) map[string][]*domain.MarketObservation {
	out := make(map[string][]*domain.MarketObservation, len(g.symbols))
	for t := startMs; t <= endMs; t += stepMs {
		for _, s := range g.symbols {
			change := g.rng.NormFloat64() * g.volatilities[s]
			g.prices[s] *= 1 + change
			if g.prices[s] < 0.01 {
				g.prices[s] = 0.01
			}
			out[s] = append(out[s], &domain.MarketObservation{
				Symbol:      s,
				TimestampMs: t,
				Price:       g.prices[s],
				Volume:      1_000_000 + g.rng.Float64()*99_000_000,
				Change24h:   -0.15 + g.rng.Float64()*0.30,
			})
		}
	}
	return out
}

// SentimentSeries emits observations whose scores follow a slow sinusoidal
// regime plus noise, so aggregation windows see both fear and greed phases.
func (g *SyntheticGenerator) SentimentSeries(startMs, endMs, stepMs int64) []*domain.SentimentObservation {
	sources := []domain.Source{
		domain.SourceSocialA,
		domain.SourceSocialB,
		domain.SourceNews,
		domain.SourceFinancial,
	}

	regimePeriodMs := float64(endMs - startMs)
	if regimePeriodMs <= 0 {
		regimePeriodMs = 1
	}

	var out []*domain.SentimentObservation
	for t := startMs; t <= endMs; t += stepMs {
		phase := 2 * math.Pi * float64(t-startMs) / regimePeriodMs
		regime := 0.6 * math.Sin(phase)
		for _, s := range g.symbols {
			src := sources[g.rng.Intn(len(sources))]
			score := regime + g.rng.NormFloat64()*0.25
			if score > 1 {
				score = 1
			}
			if score < -1 {
				score = -1
			}
			out = append(out, &domain.SentimentObservation{
				Asset:       s,
				TimestampMs: t,
				Score:       score,
				Confidence:  0.5 + g.rng.Float64()*0.45,
				VolumeProxy: math.Floor(g.rng.Float64() * 500),
				Source:      src,
			})
		}
	}
	return out
}

// Symbols returns the configured symbol list.
func (g *SyntheticGenerator) Symbols() []string { return g.symbols }

// DefaultSymbols matches the assets the synthesizer tracks out of the box.
func DefaultSymbols() []string {
	return []string{"AAPL", "BTC", "ETH", "MARKET", "TSLA"}
}
