package domain

// Classification buckets the composite index score.
type Classification string

const (
	ClassificationExtremeFear  Classification = "EXTREME_FEAR"
	ClassificationFear         Classification = "FEAR"
	ClassificationNeutral      Classification = "NEUTRAL"
	ClassificationGreed        Classification = "GREED"
	ClassificationExtremeGreed Classification = "EXTREME_GREED"
)

// String returns the string representation of Classification.
func (c Classification) String() string {
	return string(c)
}

// IsValid checks if the classification is a valid value.
func (c Classification) IsValid() bool {
	switch c {
	case ClassificationExtremeFear, ClassificationFear, ClassificationNeutral,
		ClassificationGreed, ClassificationExtremeGreed:
		return true
	}
	return false
}

// Label returns the human-readable form used in signal reasoning.
func (c Classification) Label() string {
	switch c {
	case ClassificationExtremeFear:
		return "Extreme Fear"
	case ClassificationFear:
		return "Fear"
	case ClassificationNeutral:
		return "Neutral"
	case ClassificationGreed:
		return "Greed"
	case ClassificationExtremeGreed:
		return "Extreme Greed"
	}
	return string(c)
}

// CompositeIndex is one fear/greed reading. Recomputed each evaluation
// cycle; stateless output.
type CompositeIndex struct {
	TimestampMs  int64
	OverallScore float64 // clamped to [0, 100]

	// Components are each normalized to [-1, 1].
	SentimentComponent   float64
	MomentumComponent    float64
	VolumeComponent      float64
	CorrelationComponent float64

	Classification Classification
}
