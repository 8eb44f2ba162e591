package backtest

import (
	"sort"

	"sentiment-lab/internal/domain"
)

// maxExposureFraction caps how much of current capital a single new
// position may commit.
const maxExposureFraction = 0.95

// Portfolio tracks capital, at most one open position per asset, and the
// full closed-trade history of a run.
type Portfolio struct {
	capital float64
	peak    float64

	open   map[string]*Position
	closed []*Position

	// per-trade returns relative to capital after settlement, in close order
	tradeReturns []float64

	maxHoldMs int64
}

func newPortfolio(initialCapital float64, maxHoldMs int64) *Portfolio {
	return &Portfolio{
		capital:   initialCapital,
		peak:      initialCapital,
		open:      make(map[string]*Position),
		maxHoldMs: maxHoldMs,
	}
}

// AcceptSignal opens a position for an actionable signal. HOLD signals and
// signals whose notional would exceed the exposure cap are rejected. An
// existing open position on the same asset is superseded at the current
// price before the new one opens.
func (pf *Portfolio) AcceptSignal(sig *domain.TradingSignal, price float64, nowMs int64) bool {
	if sig.Direction == domain.DirectionHold {
		return false
	}
	if price <= 0 {
		return false
	}
	if pf.capital*sig.PositionSizeFraction > maxExposureFraction*pf.capital {
		return false
	}

	if prev, ok := pf.open[sig.Asset]; ok {
		prev.close(price, nowMs, domain.CloseReasonSuperseded)
		pf.settle(prev)
	}

	pf.open[sig.Asset] = newPosition(sig, price, nowMs, pf.maxHoldMs)
	return true
}

// MarkToMarket feeds the latest prices to all open positions and settles
// any that closed on this tick. Assets without a price are left untouched.
func (pf *Portfolio) MarkToMarket(nowMs int64, priceFor func(asset string) (float64, bool)) {
	for _, asset := range pf.openAssets() {
		pos := pf.open[asset]
		price, ok := priceFor(asset)
		if !ok {
			continue
		}
		pos.UpdatePrice(price, nowMs)
		if pos.State == domain.PositionClosed {
			pf.settle(pos)
		}
	}
}

// CloseAll force-closes every remaining open position at the final price,
// used at the end of a run so all trades are realized.
func (pf *Portfolio) CloseAll(nowMs int64, priceFor func(asset string) (float64, bool)) {
	for _, asset := range pf.openAssets() {
		pos := pf.open[asset]
		price, ok := priceFor(asset)
		if !ok {
			price = pos.EntryPrice
		}
		pos.close(price, nowMs, domain.CloseReasonTimeExit)
		pf.settle(pos)
	}
}

// settle realizes a closed position: the price return scaled by the size
// fraction is applied against capital at settlement time.
func (pf *Portfolio) settle(pos *Position) {
	pnlAmount := pos.RealizedPnlFraction * pos.Signal.PositionSizeFraction * pf.capital
	pf.capital += pnlAmount
	if pf.capital != 0 {
		pf.tradeReturns = append(pf.tradeReturns, pnlAmount/pf.capital)
	} else {
		pf.tradeReturns = append(pf.tradeReturns, 0)
	}
	pf.closed = append(pf.closed, pos)
	delete(pf.open, pos.Asset)
}

// Equity is realized capital plus the sized unrealized P&L of open
// positions at the given prices.
func (pf *Portfolio) Equity(priceFor func(asset string) (float64, bool)) float64 {
	eq := pf.capital
	for _, asset := range pf.openAssets() {
		pos := pf.open[asset]
		if price, ok := priceFor(asset); ok {
			eq += pos.excursion(price) * pos.Signal.PositionSizeFraction * pf.capital
		}
	}
	return eq
}

// Observe records an equity sample and returns it with the drawdown from
// the running peak. The peak updates first, so drawdown is never negative.
func (pf *Portfolio) Observe(timestampMs int64, equity float64) domain.EquityPoint {
	if equity > pf.peak {
		pf.peak = equity
	}
	dd := 0.0
	if pf.peak > 0 {
		dd = (pf.peak - equity) / pf.peak
	}
	return domain.EquityPoint{TimestampMs: timestampMs, Equity: equity, Drawdown: dd}
}

// openAssets returns open position keys in sorted order so iteration is
// deterministic across runs.
func (pf *Portfolio) openAssets() []string {
	assets := make([]string, 0, len(pf.open))
	for a := range pf.open {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

func (pf *Portfolio) Capital() float64 { return pf.capital }

func (pf *Portfolio) ClosedTrades() []*Position { return pf.closed }

func (pf *Portfolio) TradeReturns() []float64 { return pf.tradeReturns }

func (pf *Portfolio) OpenCount() int { return len(pf.open) }

func (pf *Portfolio) OpenPosition(asset string) *Position { return pf.open[asset] }
