package domain

// Direction is the recommended trade direction of a signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell || d == DirectionHold
}

// TradingSignal is a directional recommendation with confidence, sizing,
// and risk parameters. Immutable once emitted.
type TradingSignal struct {
	SignalID    string // deterministic hash
	Asset       string
	TimestampMs int64
	Direction   Direction
	Confidence  float64 // [0, 1]
	Strength    float64 // [0, 1]

	// Price targets are nil when no reference price was available or the
	// direction is HOLD.
	TargetPrice     *float64
	StopLoss        *float64
	TakeProfit      *float64
	RiskRewardRatio *float64 // nil when targets missing or risk is zero

	PositionSizeFraction float64 // [0, maxPositionFraction]
	Reasoning            string
	SupportingData       map[string]any
}
