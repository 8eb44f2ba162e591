// Package signal turns multi-timeframe sentiment windows and the composite
// index into directional trading signals.
package signal

import (
	"math"

	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/feargreed"
	"sentiment-lab/internal/idhash"
)

// WindowSource answers windowed sentiment queries. Implemented by the
// aggregator.
type WindowSource interface {
	Query(asset string, windowSeconds int, nowMs int64) *domain.AggregatedWindow
	Assets() []string
}

// PriceSource supplies the current reference price per symbol. Implemented
// by the market-data ingestion layer; price targets are omitted when no
// reference price is known.
type PriceSource interface {
	LatestPrice(symbol string) (float64, bool)
}

// Config holds synthesizer tuning parameters.
type Config struct {
	ShortWindowSeconds  int
	MediumWindowSeconds int
	LongWindowSeconds   int

	// MinConfidence suppresses signals below this confidence.
	MinConfidence float64
	// MaxPositionFraction caps the per-signal position size.
	MaxPositionFraction float64
	StopLossPct         float64
	TakeProfitPct       float64

	// DefaultAssets is used only while the aggregator has seen nothing.
	DefaultAssets []string

	Thresholds feargreed.Thresholds
}

// DefaultConfig returns the standard synthesizer parameters.
func DefaultConfig() Config {
	return Config{
		ShortWindowSeconds:  300,
		MediumWindowSeconds: 3600,
		LongWindowSeconds:   86400,
		MinConfidence:       0.7,
		MaxPositionFraction: 0.1,
		StopLossPct:         0.05,
		TakeProfitPct:       0.15,
		DefaultAssets:       []string{"AAPL", "BTC", "ETH", "MARKET", "TSLA"},
		Thresholds:          feargreed.DefaultThresholds(),
	}
}

// Synthesizer generates signals per tracked asset. It is driven by the
// single-writer evaluation loop and holds no mutable state of its own.
type Synthesizer struct {
	cfg     Config
	windows WindowSource
	prices  PriceSource
}

// New creates a Synthesizer.
func New(cfg Config, windows WindowSource, prices PriceSource) *Synthesizer {
	return &Synthesizer{cfg: cfg, windows: windows, prices: prices}
}

// Generate produces at most one signal per tracked asset for this cycle.
// Assets without short-window data yield no signal; signals below the
// configured minimum confidence are suppressed.
func (s *Synthesizer) Generate(index *domain.CompositeIndex, nowMs int64) []*domain.TradingSignal {
	var signals []*domain.TradingSignal
	for _, asset := range s.trackedAssets() {
		if sig := s.generateForAsset(asset, index, nowMs); sig != nil {
			signals = append(signals, sig)
		}
	}
	return signals
}

// trackedAssets returns the aggregator's asset set, falling back to the
// configured defaults only when nothing has been observed yet.
func (s *Synthesizer) trackedAssets() []string {
	if assets := s.windows.Assets(); len(assets) > 0 {
		return assets
	}
	return s.cfg.DefaultAssets
}

func (s *Synthesizer) generateForAsset(asset string, index *domain.CompositeIndex, nowMs int64) *domain.TradingSignal {
	short := s.windows.Query(asset, s.cfg.ShortWindowSeconds, nowMs)
	if short == nil {
		return nil
	}
	medium := s.windows.Query(asset, s.cfg.MediumWindowSeconds, nowMs)

	sentimentScore := short.VolumeWeightedScore
	fgInfluence := influence(index.OverallScore, s.cfg.Thresholds)

	// Multi-timeframe confirmation: agreement between the short and medium
	// windows amplifies, disagreement dampens.
	confirmation := 1.0
	if medium != nil {
		if (sentimentScore > 0) == (medium.MeanScore > 0) {
			confirmation = 1.2
		} else {
			confirmation = 0.8
		}
	}

	strength := clamp01(math.Abs(sentimentScore) * confirmation * fgInfluence)

	combined := sentimentScore + 0.5*short.Momentum
	direction := domain.DirectionHold
	switch {
	case combined > 0.3:
		direction = domain.DirectionBuy
	case combined < -0.3:
		direction = domain.DirectionSell
	}

	confidence := clamp01(short.MeanConfidence * confirmation * strength)
	if confidence < s.cfg.MinConfidence {
		return nil
	}

	entry, target, stop, takeProfit := s.priceTargets(asset, direction, strength)

	return &domain.TradingSignal{
		SignalID:             idhash.ComputeSignalID(asset, direction, nowMs),
		Asset:                asset,
		TimestampMs:          nowMs,
		Direction:            direction,
		Confidence:           confidence,
		Strength:             strength,
		TargetPrice:          target,
		StopLoss:             stop,
		TakeProfit:           takeProfit,
		RiskRewardRatio:      riskReward(stop, takeProfit, entry),
		PositionSizeFraction: s.cfg.MaxPositionFraction * confidence * strength,
		Reasoning:            reasoning(short, index, direction),
		SupportingData: map[string]any{
			"fear_greed_score":          index.OverallScore,
			"fear_greed_classification": index.Classification.String(),
			"short_sentiment":           short.MeanScore,
			"short_momentum":            short.Momentum,
			"confirmation":              confirmation,
		},
	}
}

// influence maps the composite score onto a strength multiplier: extreme
// fear is treated as a contrarian buy opportunity, extreme greed as a
// caution signal.
func influence(score float64, t feargreed.Thresholds) float64 {
	switch {
	case score <= t.ExtremeFear:
		return 1.3
	case score <= t.Fear:
		return 1.1
	case score >= t.ExtremeGreed:
		return 0.7
	case score >= t.Greed:
		return 0.9
	default:
		return 1.0
	}
}

// priceTargets derives stop-loss and take-profit levels from the current
// reference price, with the take-profit offset scaled by strength. Returns
// nils for HOLD or when no reference price is known.
func (s *Synthesizer) priceTargets(asset string, direction domain.Direction, strength float64) (entry, target, stop, takeProfit *float64) {
	if direction == domain.DirectionHold || s.prices == nil {
		return nil, nil, nil, nil
	}
	price, ok := s.prices.LatestPrice(asset)
	if !ok || price <= 0 {
		return nil, nil, nil, nil
	}

	volatilityAdjustment := strength * 0.1

	var t, sl float64
	if direction == domain.DirectionBuy {
		t = price * (1 + s.cfg.TakeProfitPct*volatilityAdjustment)
		sl = price * (1 - s.cfg.StopLossPct)
	} else {
		t = price * (1 - s.cfg.TakeProfitPct*volatilityAdjustment)
		sl = price * (1 + s.cfg.StopLossPct)
	}
	return &price, &t, &sl, &t
}

// riskReward is |takeProfit-entry| / |entry-stopLoss|, nil when any target
// is missing or risk is zero.
func riskReward(stop, takeProfit, entry *float64) *float64 {
	if stop == nil || takeProfit == nil || entry == nil {
		return nil
	}
	risk := math.Abs(*entry - *stop)
	if risk == 0 {
		return nil
	}
	rr := math.Abs(*takeProfit-*entry) / risk
	return &rr
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
