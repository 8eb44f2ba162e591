package feargreed

import (
	"math"
	"testing"

	"sentiment-lab/internal/domain"
)

func makeWindow(asset string, vwScore, momentum, meanScore, confidence float64, samples int) *domain.AggregatedWindow {
	return &domain.AggregatedWindow{
		Asset:               asset,
		WindowSeconds:       300,
		SampleCount:         samples,
		MeanScore:           meanScore,
		VolumeWeightedScore: vwScore,
		Momentum:            momentum,
		MeanConfidence:      confidence,
	}
}

func TestCompute_WeightedSumAndRescale(t *testing.T) {
	// One asset with unit weight produces components
	// (sentiment=0.5, momentum=0.2, volume sign-normalized, correlation=0).
	// The volume component for a single asset normalizes to its sign.
	calc := NewCalculator(DefaultThresholds(), nil)

	windows := map[string]*domain.AggregatedWindow{
		"BTC": makeWindow("BTC", 0.5, 0.2, 0.4, 1.0, 10),
	}

	idx := calc.Compute(windows, 1_000)

	if math.Abs(idx.SentimentComponent-0.5) > 1e-9 {
		t.Errorf("SentimentComponent = %f, want 0.5", idx.SentimentComponent)
	}
	if math.Abs(idx.MomentumComponent-0.2) > 1e-9 {
		t.Errorf("MomentumComponent = %f, want 0.2", idx.MomentumComponent)
	}
	if math.Abs(idx.VolumeComponent-1.0) > 1e-9 {
		t.Errorf("VolumeComponent = %f, want 1.0", idx.VolumeComponent)
	}
	if idx.CorrelationComponent != 0 {
		t.Errorf("CorrelationComponent = %f, want 0", idx.CorrelationComponent)
	}

	// weighted = 0.5*0.4 + 0.2*0.25 + 1.0*0.2 + 0 = 0.45 -> (0.45+1)*50 = 72.5
	if math.Abs(idx.OverallScore-72.5) > 1e-9 {
		t.Errorf("OverallScore = %f, want 72.5", idx.OverallScore)
	}
	if idx.Classification != domain.ClassificationGreed {
		t.Errorf("Classification = %s, want GREED", idx.Classification)
	}
}

// fixedCorrelation pins the correlation component for component-math tests.
type fixedCorrelation struct{ v float64 }

func (f fixedCorrelation) Correlation(map[string]*domain.AggregatedWindow) float64 { return f.v }

func TestCompute_ScenarioComponents(t *testing.T) {
	// Components (0.5, 0.2, 0.1, 0.0) with the fixed weights give a
	// weighted sum of 0.27 and an overall score of 63.5 (Greed).
	weighted := 0.5*WeightSentiment + 0.2*WeightMomentum + 0.1*WeightVolume
	if math.Abs(weighted-0.27) > 1e-9 {
		t.Fatalf("weighted sum = %f, want 0.27", weighted)
	}

	score := (weighted + 1) * 50
	if math.Abs(score-63.5) > 1e-9 {
		t.Errorf("rescaled score = %f, want 63.5", score)
	}
	if got := DefaultThresholds().Classify(score); got != domain.ClassificationGreed {
		t.Errorf("Classify(63.5) = %s, want GREED", got)
	}
}

func TestCompute_Clamping(t *testing.T) {
	calc := NewCalculator(DefaultThresholds(), fixedCorrelation{v: 1})

	// All components pinned at the extremes keep the score inside [0,100].
	for _, score := range []float64{1.0, -1.0} {
		windows := map[string]*domain.AggregatedWindow{
			"BTC": makeWindow("BTC", score, score, score, 1.0, 100),
			"ETH": makeWindow("ETH", score, score, score, 1.0, 100),
		}
		idx := calc.Compute(windows, 1_000)
		if idx.OverallScore < 0 || idx.OverallScore > 100 {
			t.Errorf("OverallScore = %f out of [0,100]", idx.OverallScore)
		}
	}
}

func TestCompute_EmptySnapshotIsNeutral(t *testing.T) {
	calc := NewCalculator(DefaultThresholds(), nil)

	idx := calc.Compute(map[string]*domain.AggregatedWindow{}, 1_000)
	if idx.OverallScore != 50 {
		t.Errorf("OverallScore = %f, want neutral 50", idx.OverallScore)
	}
	if idx.Classification != domain.ClassificationNeutral {
		t.Errorf("Classification = %s, want NEUTRAL", idx.Classification)
	}

	// Nil entries (absent windows) are skipped, not counted.
	idx = calc.Compute(map[string]*domain.AggregatedWindow{"BTC": nil}, 1_000)
	if idx.OverallScore != 50 {
		t.Errorf("OverallScore with nil window = %f, want 50", idx.OverallScore)
	}
}

func TestThresholds_ClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score float64
		want  domain.Classification
	}{
		{0, domain.ClassificationExtremeFear},
		{25, domain.ClassificationExtremeFear},
		{25.01, domain.ClassificationFear},
		{45, domain.ClassificationFear},
		{55, domain.ClassificationNeutral},
		{75, domain.ClassificationGreed},
		{75.01, domain.ClassificationExtremeGreed},
		{100, domain.ClassificationExtremeGreed},
	}

	for _, tt := range tests {
		if got := th.Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%.2f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Errorf("default thresholds should validate: %v", err)
	}

	bad := DefaultThresholds()
	bad.Neutral = bad.Fear // not strictly increasing
	if err := bad.Validate(); err == nil {
		t.Error("expected error for equal thresholds")
	}

	bad = DefaultThresholds()
	bad.Greed = 10
	if err := bad.Validate(); err == nil {
		t.Error("expected error for decreasing thresholds")
	}
}

func TestVolumeComponent_ZeroMagnitudes(t *testing.T) {
	windows := map[string]*domain.AggregatedWindow{
		"BTC": makeWindow("BTC", 0, 0, 0, 1.0, 10),
		"ETH": makeWindow("ETH", 0, 0, 0, 1.0, 5),
	}
	if got := volumeComponent(windows); got != 0 {
		t.Errorf("volumeComponent = %f, want 0 when all magnitudes are zero", got)
	}
}
