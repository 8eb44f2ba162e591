// Package backtest replays trading signals against a price series and
// produces realized performance metrics. A run is batch, single-threaded,
// and deterministic: identical inputs produce identical results.
package backtest

import (
	"sentiment-lab/internal/domain"
)

// Position is a simulated open trade. Created when the portfolio accepts a
// non-HOLD signal, mutated on each price tick while OPEN, frozen at CLOSED.
type Position struct {
	Asset       string
	Signal      *domain.TradingSignal
	EntryPrice  float64
	EntryTimeMs int64

	State       domain.PositionState
	ExitPrice   *float64
	ExitTimeMs  *int64
	CloseReason domain.CloseReason

	// RealizedPnlFraction is the direction-aware price return of the trade,
	// before position sizing. Settlement applies the size fraction.
	RealizedPnlFraction   float64
	MaxFavorableExcursion float64 // best excursion reached, >= 0
	MaxAdverseExcursion   float64 // worst excursion reached, <= 0

	unrealized float64
	maxHoldMs  int64
}

// newPosition opens a position at the given entry price and time.
func newPosition(sig *domain.TradingSignal, entryPrice float64, entryTimeMs, maxHoldMs int64) *Position {
	return &Position{
		Asset:       sig.Asset,
		Signal:      sig,
		EntryPrice:  entryPrice,
		EntryTimeMs: entryTimeMs,
		State:       domain.PositionOpen,
		maxHoldMs:   maxHoldMs,
	}
}

// excursion is the direction-aware fractional move from entry.
func (p *Position) excursion(price float64) float64 {
	if p.Signal.Direction == domain.DirectionBuy {
		return (price - p.EntryPrice) / p.EntryPrice
	}
	return (p.EntryPrice - price) / p.EntryPrice
}

// UpdatePrice applies a market tick: tracks excursions and unrealized P&L,
// then evaluates close conditions. No-op once CLOSED.
func (p *Position) UpdatePrice(price float64, nowMs int64) {
	if p.State == domain.PositionClosed {
		return
	}

	exc := p.excursion(price)
	p.unrealized = exc
	if exc > p.MaxFavorableExcursion {
		p.MaxFavorableExcursion = exc
	}
	if exc < p.MaxAdverseExcursion {
		p.MaxAdverseExcursion = exc
	}

	if reason, ok := p.closeCondition(price, nowMs); ok {
		p.close(price, nowMs, reason)
	}
}

// closeCondition checks the exit triggers in priority order: holding-period
// expiry, then stop-loss, then take-profit. Stops are direction-aware.
func (p *Position) closeCondition(price float64, nowMs int64) (domain.CloseReason, bool) {
	if nowMs-p.EntryTimeMs > p.maxHoldMs {
		return domain.CloseReasonTimeExit, true
	}

	buy := p.Signal.Direction == domain.DirectionBuy
	if sl := p.Signal.StopLoss; sl != nil {
		if (buy && price <= *sl) || (!buy && price >= *sl) {
			return domain.CloseReasonStopLoss, true
		}
	}
	if tp := p.Signal.TakeProfit; tp != nil {
		if (buy && price >= *tp) || (!buy && price <= *tp) {
			return domain.CloseReasonTakeProfit, true
		}
	}
	return "", false
}

// close transitions OPEN -> CLOSED exactly once and freezes the realized
// price return.
func (p *Position) close(price float64, nowMs int64, reason domain.CloseReason) {
	if p.State == domain.PositionClosed {
		return
	}
	p.State = domain.PositionClosed
	p.ExitPrice = &price
	p.ExitTimeMs = &nowMs
	p.CloseReason = reason
	p.RealizedPnlFraction = p.excursion(price)
	p.unrealized = 0
}

// UnrealizedPnl returns the direction-aware fractional P&L of an open
// position as of the last tick, zero once closed.
func (p *Position) UnrealizedPnl() float64 {
	return p.unrealized
}
