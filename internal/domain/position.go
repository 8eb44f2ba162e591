package domain

// PositionState is the lifecycle state of a simulated position.
type PositionState string

const (
	PositionOpen   PositionState = "OPEN"
	PositionClosed PositionState = "CLOSED"
)

// CloseReason records why a position left the OPEN state.
type CloseReason string

const (
	CloseReasonTimeExit   CloseReason = "TIME_EXIT"
	CloseReasonStopLoss   CloseReason = "STOP_LOSS"
	CloseReasonTakeProfit CloseReason = "TAKE_PROFIT"
	CloseReasonSuperseded CloseReason = "SUPERSEDED"
)

// String returns the string representation of CloseReason.
func (r CloseReason) String() string {
	return string(r)
}

// IsValid checks if the close reason is a valid value.
func (r CloseReason) IsValid() bool {
	switch r {
	case CloseReasonTimeExit, CloseReasonStopLoss, CloseReasonTakeProfit, CloseReasonSuperseded:
		return true
	}
	return false
}
