package domain

// Source identifies where a sentiment observation originated.
type Source string

const (
	SourceSocialA   Source = "SOCIAL_A"
	SourceSocialB   Source = "SOCIAL_B"
	SourceNews      Source = "NEWS"
	SourceFinancial Source = "FINANCIAL"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	switch s {
	case SourceSocialA, SourceSocialB, SourceNews, SourceFinancial:
		return true
	}
	return false
}

// SentimentObservation is a single pre-scored sentiment reading for an asset.
// Produced by the external text-scoring collaborator; immutable once created.
type SentimentObservation struct {
	Asset       string  // tracked symbol, e.g. "BTC"
	TimestampMs int64   // Unix timestamp in milliseconds
	Score       float64 // polarity in [-1, 1]
	Confidence  float64 // scorer confidence in [0, 1]
	VolumeProxy float64 // engagement-derived weight, >= 0
	Source      Source
}

// Validate reports whether the observation satisfies the boundary contract.
// Malformed upstream records are dropped before entering the aggregator.
func (o *SentimentObservation) Validate() bool {
	if o == nil || o.Asset == "" || o.TimestampMs <= 0 {
		return false
	}
	if o.Score < -1 || o.Score > 1 {
		return false
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return false
	}
	if o.VolumeProxy < 0 {
		return false
	}
	return o.Source.IsValid()
}

// MarketObservation is a price/volume snapshot for a symbol.
// Produced by the market-data collaborator or the backtest's synthetic generator.
type MarketObservation struct {
	Symbol      string
	TimestampMs int64
	Price       float64 // > 0
	Volume      float64 // >= 0
	Change24h   float64 // fractional 24h change
}

// Validate reports whether the observation satisfies the boundary contract.
func (o *MarketObservation) Validate() bool {
	if o == nil || o.Symbol == "" || o.TimestampMs <= 0 {
		return false
	}
	return o.Price > 0 && o.Volume >= 0
}
