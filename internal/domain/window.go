package domain

// SourceStats holds the per-source slice of an aggregated window.
type SourceStats struct {
	Count     int
	MeanScore float64
}

// AggregatedWindow is the windowed sentiment summary for one asset.
// Derived on demand by the aggregator; never persisted or mutated.
type AggregatedWindow struct {
	Asset         string
	TimestampMs   int64 // evaluation time the window was computed at
	WindowSeconds int
	SampleCount   int
	MeanScore     float64
	// VolumeWeightedScore is sum(score*volumeProxy)/sum(volumeProxy),
	// falling back to MeanScore when total volume proxy is zero.
	VolumeWeightedScore float64
	// Momentum is mean(score) of the chronologically later half minus
	// mean(score) of the earlier half; zero with fewer than 2 samples.
	Momentum       float64
	MeanConfidence float64
	Sources        map[Source]SourceStats
}
