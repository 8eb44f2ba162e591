// Package feargreed folds per-asset sentiment windows into the composite
// fear/greed index.
package feargreed

import (
	"fmt"
	"math"
	"sort"

	"sentiment-lab/internal/domain"
)

// Component weights of the composite index.
const (
	WeightSentiment   = 0.40
	WeightMomentum    = 0.25
	WeightVolume      = 0.20
	WeightCorrelation = 0.15
)

// Thresholds are the classification bucket upper bounds on the 0-100 scale.
// Buckets are inclusive: score <= ExtremeFear is extreme fear, and so on;
// anything above Greed is extreme greed. ExtremeGreed is consumed by the
// signal synthesizer's influence lookup, not by classification.
type Thresholds struct {
	ExtremeFear  float64
	Fear         float64
	Neutral      float64
	Greed        float64
	ExtremeGreed float64
}

// DefaultThresholds returns the standard bucket bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExtremeFear:  25,
		Fear:         45,
		Neutral:      55,
		Greed:        75,
		ExtremeGreed: 90,
	}
}

// Validate checks that thresholds are strictly increasing.
func (t Thresholds) Validate() error {
	vals := []float64{t.ExtremeFear, t.Fear, t.Neutral, t.Greed, t.ExtremeGreed}
	if !sort.Float64sAreSorted(vals) {
		return fmt.Errorf("classification thresholds must be increasing: %v", vals)
	}
	for i := 1; i < len(vals); i++ {
		if vals[i] == vals[i-1] {
			return fmt.Errorf("classification thresholds must be strictly increasing: %v", vals)
		}
	}
	return nil
}

// Classify maps a 0-100 score onto its bucket.
func (t Thresholds) Classify(score float64) domain.Classification {
	switch {
	case score <= t.ExtremeFear:
		return domain.ClassificationExtremeFear
	case score <= t.Fear:
		return domain.ClassificationFear
	case score <= t.Neutral:
		return domain.ClassificationNeutral
	case score <= t.Greed:
		return domain.ClassificationGreed
	default:
		return domain.ClassificationExtremeGreed
	}
}

// CorrelationSource supplies the sentiment/price co-movement component.
// The analytics that would back it are an external interface point; the
// slot in the weighted sum is reserved for it.
type CorrelationSource interface {
	// Correlation returns a value in [-1, 1] for the current cycle.
	Correlation(windows map[string]*domain.AggregatedWindow) float64
}

// ZeroCorrelation is the default CorrelationSource: no correlation
// analytics available, component pinned to zero.
type ZeroCorrelation struct{}

// Correlation implements CorrelationSource.
func (ZeroCorrelation) Correlation(map[string]*domain.AggregatedWindow) float64 { return 0 }

// Calculator computes the composite index from aggregated windows.
type Calculator struct {
	thresholds  Thresholds
	correlation CorrelationSource
}

// NewCalculator creates a Calculator. A nil correlation source defaults to
// ZeroCorrelation.
func NewCalculator(thresholds Thresholds, correlation CorrelationSource) *Calculator {
	if correlation == nil {
		correlation = ZeroCorrelation{}
	}
	return &Calculator{thresholds: thresholds, correlation: correlation}
}

// Compute folds the short-window snapshots for all tracked assets into one
// index reading. Absent windows (nil map entries) are skipped; an empty
// snapshot yields a neutral reading, not an error.
func (c *Calculator) Compute(windows map[string]*domain.AggregatedWindow, nowMs int64) *domain.CompositeIndex {
	sentiment := sentimentComponent(windows)
	momentum := momentumComponent(windows)
	volume := volumeComponent(windows)
	correlation := c.correlation.Correlation(windows)

	weighted := sentiment*WeightSentiment +
		momentum*WeightMomentum +
		volume*WeightVolume +
		correlation*WeightCorrelation

	// Rescale [-1,1] to [0,100], then clamp.
	score := (weighted + 1) * 50
	score = math.Max(0, math.Min(100, score))

	return &domain.CompositeIndex{
		TimestampMs:          nowMs,
		OverallScore:         score,
		SentimentComponent:   sentiment,
		MomentumComponent:    momentum,
		VolumeComponent:      volume,
		CorrelationComponent: correlation,
		Classification:       c.thresholds.Classify(score),
	}
}

// sentimentComponent is the confidence-and-mention-count weighted mean of
// volume-weighted scores across assets.
func sentimentComponent(windows map[string]*domain.AggregatedWindow) float64 {
	var weightedSum, totalWeight float64
	for _, w := range windows {
		if w == nil {
			continue
		}
		weight := float64(w.SampleCount) * w.MeanConfidence
		weightedSum += w.VolumeWeightedScore * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// momentumComponent is the mean of per-asset momentum.
func momentumComponent(windows map[string]*domain.AggregatedWindow) float64 {
	var sum float64
	n := 0
	for _, w := range windows {
		if w == nil {
			continue
		}
		sum += w.Momentum
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// volumeComponent is the mean of mentionCount*score per asset, normalized by
// the largest magnitude in the batch so a single loud asset cannot dominate.
func volumeComponent(windows map[string]*domain.AggregatedWindow) float64 {
	var products []float64
	for _, w := range windows {
		if w == nil {
			continue
		}
		products = append(products, float64(w.SampleCount)*w.MeanScore)
	}
	if len(products) == 0 {
		return 0
	}

	var sum, maxAbs float64
	for _, p := range products {
		sum += p
		if abs := math.Abs(p); abs > maxAbs {
			maxAbs = abs
		}
	}
	if maxAbs == 0 {
		return 0
	}
	return sum / float64(len(products)) / maxAbs
}
