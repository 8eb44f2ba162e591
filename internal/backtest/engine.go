package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"

	"sentiment-lab/internal/domain"
)

const (
	// DefaultStepMs advances the simulation clock five minutes per tick.
	DefaultStepMs = 5 * 60 * 1000
	// DefaultMaxHoldMs force-closes positions held longer than 24 hours.
	DefaultMaxHoldMs = 24 * 60 * 60 * 1000

	DefaultInitialCapital = 100_000.0

	// tradingDaysPerYear annualizes the per-trade Sharpe ratio.
	tradingDaysPerYear = 252
)

// Config controls a single backtest run.
type Config struct {
	StrategyName   string
	InitialCapital float64
	StepMs         int64
	MaxHoldMs      int64
}

func DefaultConfig() Config {
	return Config{
		StrategyName:   "sentiment-composite",
		InitialCapital: DefaultInitialCapital,
		StepMs:         DefaultStepMs,
		MaxHoldMs:      DefaultMaxHoldMs,
	}
}

func (c Config) validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %f", c.InitialCapital)
	}
	if c.StepMs <= 0 {
		return fmt.Errorf("step must be positive, got %d ms", c.StepMs)
	}
	if c.MaxHoldMs <= 0 {
		return fmt.Errorf("max hold must be positive, got %d ms", c.MaxHoldMs)
	}
	return nil
}

// Engine replays signals against historical prices on a fixed clock.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.StrategyName == "" {
		cfg.StrategyName = DefaultConfig().StrategyName
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Run simulates the window [startMs, endMs] in fixed steps. Each tick first
// applies the signals that became due, then marks open positions to market,
// then samples equity. Applying signals first means a position entered this
// tick sees this tick's price, so a stop or take-profit level already
// crossed at entry closes immediately, and a superseding signal lands before
// the stop check. Remaining positions are force-closed at the end so every
// trade is realized. Identical inputs produce identical results.
func (e *Engine) Run(
	ctx context.Context,
	signals []*domain.TradingSignal,
	prices map[string][]*domain.MarketObservation,
	startMs, endMs int64,
) (*domain.BacktestResult, []domain.EquityPoint, error) {
	if endMs < startMs {
		return nil, nil, fmt.Errorf("end %d before start %d", endMs, startMs)
	}

	book := newPriceBook(prices)
	queue := orderSignals(signals)
	pf := newPortfolio(e.cfg.InitialCapital, e.cfg.MaxHoldMs)

	var curve []domain.EquityPoint
	next := 0

	for t := startMs; t <= endMs; t += e.cfg.StepMs {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("backtest interrupted: %w", err)
		}

		priceAt := func(asset string) (float64, bool) { return book.PriceAt(asset, t) }

		for next < len(queue) && queue[next].TimestampMs <= t {
			sig := queue[next]
			next++
			if price, ok := book.PriceAt(sig.Asset, t); ok {
				pf.AcceptSignal(sig, price, t)
			}
		}

		pf.MarkToMarket(t, priceAt)

		curve = append(curve, pf.Observe(t, pf.Equity(priceAt)))
	}

	finalPrice := func(asset string) (float64, bool) { return book.PriceAt(asset, endMs) }
	pf.CloseAll(endMs, finalPrice)
	curve = append(curve, pf.Observe(endMs, pf.Capital()))

	result := e.summarize(pf, curve, startMs, endMs)
	return result, curve, nil
}

// orderSignals sorts by timestamp, breaking ties by signal ID so that
// same-tick signals apply in a stable order.
func orderSignals(signals []*domain.TradingSignal) []*domain.TradingSignal {
	queue := make([]*domain.TradingSignal, len(signals))
	copy(queue, signals)
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].TimestampMs != queue[j].TimestampMs {
			return queue[i].TimestampMs < queue[j].TimestampMs
		}
		return queue[i].SignalID < queue[j].SignalID
	})
	return queue
}

func (e *Engine) summarize(pf *Portfolio, curve []domain.EquityPoint, startMs, endMs int64) *domain.BacktestResult {
	trades := pf.ClosedTrades()

	var (
		wins, losses               int
		grossProfit, grossLoss     float64
		largestWin, largestLoss    float64
		sumWin, sumLoss            float64
		totalHoldMs                int64
		curWinStreak, curLossStreak int
		maxWinStreak, maxLossStreak int
	)
	for _, tr := range trades {
		pnl := tr.RealizedPnlFraction
		if pnl > 0 {
			wins++
			grossProfit += pnl
			sumWin += pnl
			if pnl > largestWin {
				largestWin = pnl
			}
			curWinStreak++
			curLossStreak = 0
			if curWinStreak > maxWinStreak {
				maxWinStreak = curWinStreak
			}
		} else if pnl < 0 {
			losses++
			grossLoss += -pnl
			sumLoss += pnl
			if pnl < largestLoss {
				largestLoss = pnl
			}
			curLossStreak++
			curWinStreak = 0
			if curLossStreak > maxLossStreak {
				maxLossStreak = curLossStreak
			}
		} else {
			// flat trades break both streaks
			curWinStreak = 0
			curLossStreak = 0
		}
		if tr.ExitTimeMs != nil {
			totalHoldMs += *tr.ExitTimeMs - tr.EntryTimeMs
		}
	}

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades))
	}

	profitFactor := 0.0
	switch {
	case len(trades) == 0:
	case grossLoss == 0 && wins > 0:
		profitFactor = math.Inf(1)
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
	}

	avgDurationHours := 0.0
	if len(trades) > 0 {
		avgDurationHours = float64(totalHoldMs) / float64(len(trades)) / (60 * 60 * 1000)
	}

	maxDD := 0.0
	for _, pt := range curve {
		if pt.Drawdown > maxDD {
			maxDD = pt.Drawdown
		}
	}

	avgWin, avgLoss := 0.0, 0.0
	if wins > 0 {
		avgWin = sumWin / float64(wins)
	}
	if losses > 0 {
		avgLoss = sumLoss / float64(losses)
	}

	return &domain.BacktestResult{
		StrategyName:          e.cfg.StrategyName,
		StartMs:               startMs,
		EndMs:                 endMs,
		TotalReturn:           (pf.Capital() - e.cfg.InitialCapital) / e.cfg.InitialCapital,
		SharpeRatio:           sharpe(pf.TradeReturns()),
		MaxDrawdown:           maxDD,
		WinRate:               winRate,
		ProfitFactor:          profitFactor,
		TotalTrades:           len(trades),
		AvgTradeDurationHours: avgDurationHours,
		Detail: map[string]any{
			"final_capital":          pf.Capital(),
			"largest_win":            largestWin,
			"largest_loss":           largestLoss,
			"avg_win":                avgWin,
			"avg_loss":               avgLoss,
			"max_consecutive_wins":   maxWinStreak,
			"max_consecutive_losses": maxLossStreak,
		},
	}
}

// sharpe annualizes the mean per-trade return over its population standard
// deviation. Fewer than two trades, or a flat series, yields zero.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}
