package backtest

import (
	"context"
	"math"
	"reflect"
	"testing"

	"sentiment-lab/internal/domain"
)

func flatSeries(symbol string, price float64, startMs, endMs, stepMs int64) []*domain.MarketObservation {
	var out []*domain.MarketObservation
	for t := startMs; t <= endMs; t += stepMs {
		out = append(out, &domain.MarketObservation{
			Symbol: symbol, TimestampMs: t, Price: price, Volume: 1_000_000,
		})
	}
	return out
}

func TestRun_NoSignals(t *testing.T) {
	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	prices := map[string][]*domain.MarketObservation{
		"BTC": flatSeries("BTC", 100, 0, 3_600_000, DefaultStepMs),
	}
	result, curve, err := eng.Run(context.Background(), nil, prices, 0, 3_600_000)
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalTrades != 0 {
		t.Errorf("expected 0 trades, got %d", result.TotalTrades)
	}
	if result.WinRate != 0 {
		t.Errorf("expected win rate 0, got %f", result.WinRate)
	}
	if result.TotalReturn != 0 {
		t.Errorf("expected total return 0, got %f", result.TotalReturn)
	}
	if result.ProfitFactor != 0 {
		t.Errorf("expected profit factor 0 with no trades, got %f", result.ProfitFactor)
	}
	if result.SharpeRatio != 0 {
		t.Errorf("expected sharpe 0 with no trades, got %f", result.SharpeRatio)
	}
	if len(curve) == 0 {
		t.Fatal("expected a non-empty equity curve")
	}
	for _, pt := range curve {
		if pt.Equity != DefaultInitialCapital {
			t.Fatalf("idle portfolio equity should stay at initial capital, got %f", pt.Equity)
		}
	}
}

func TestRun_OnlyWinsProfitFactorInf(t *testing.T) {
	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	// price steps up through the take-profit, so the single trade wins
	series := []*domain.MarketObservation{
		{Symbol: "BTC", TimestampMs: 0, Price: 100, Volume: 1},
		{Symbol: "BTC", TimestampMs: DefaultStepMs, Price: 100, Volume: 1},
		{Symbol: "BTC", TimestampMs: 2 * DefaultStepMs, Price: 125, Volume: 1},
		{Symbol: "BTC", TimestampMs: 3 * DefaultStepMs, Price: 125, Volume: 1},
	}
	sig := buySignal("BTC", 0, 0.1, fptr(90), fptr(120))

	result, _, err := eng.Run(
		context.Background(),
		[]*domain.TradingSignal{sig},
		map[string][]*domain.MarketObservation{"BTC": series},
		0, 3*DefaultStepMs,
	)
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalTrades != 1 {
		t.Fatalf("expected 1 trade, got %d", result.TotalTrades)
	}
	if result.WinRate != 1 {
		t.Errorf("expected win rate 1, got %f", result.WinRate)
	}
	if !math.IsInf(result.ProfitFactor, 1) {
		t.Errorf("expected +Inf profit factor with only wins, got %f", result.ProfitFactor)
	}
	if result.TotalReturn <= 0 {
		t.Errorf("expected positive total return, got %f", result.TotalReturn)
	}
}

func TestRun_StopCrossedAtEntryClosesSameTick(t *testing.T) {
	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	// stop level above the entry price: already crossed on the entry tick,
	// so the trade must close flat at 100, not at the next tick's 90
	series := []*domain.MarketObservation{
		{Symbol: "BTC", TimestampMs: 0, Price: 100, Volume: 1},
		{Symbol: "BTC", TimestampMs: DefaultStepMs, Price: 90, Volume: 1},
	}
	sig := buySignal("BTC", 0, 0.1, fptr(110), nil)

	result, _, err := eng.Run(
		context.Background(),
		[]*domain.TradingSignal{sig},
		map[string][]*domain.MarketObservation{"BTC": series},
		0, DefaultStepMs,
	)
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalTrades != 1 {
		t.Fatalf("expected 1 trade, got %d", result.TotalTrades)
	}
	if result.TotalReturn != 0 {
		t.Errorf("expected flat return from a same-tick stop at entry, got %f", result.TotalReturn)
	}
}

func TestRun_SameTickSignalAppliesBeforeMark(t *testing.T) {
	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	// the second signal and the stop-crossing price land on the same tick;
	// the signal applies first, so the old position is superseded rather
	// than stopped out
	series := []*domain.MarketObservation{
		{Symbol: "BTC", TimestampMs: 0, Price: 100, Volume: 1},
		{Symbol: "BTC", TimestampMs: DefaultStepMs, Price: 90, Volume: 1},
	}
	first := buySignal("BTC", 0, 0.1, fptr(95), nil)
	second := buySignal("BTC", DefaultStepMs, 0.1, nil, nil)

	result, _, err := eng.Run(
		context.Background(),
		[]*domain.TradingSignal{first, second},
		map[string][]*domain.MarketObservation{"BTC": series},
		0, DefaultStepMs,
	)
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalTrades != 2 {
		t.Fatalf("expected 2 trades, got %d", result.TotalTrades)
	}

	pf := newPortfolio(DefaultInitialCapital, DefaultMaxHoldMs)
	pf.AcceptSignal(first, 100, 0)
	pf.MarkToMarket(0, func(string) (float64, bool) { return 100, true })
	pf.AcceptSignal(second, 90, DefaultStepMs)
	pf.MarkToMarket(DefaultStepMs, func(string) (float64, bool) { return 90, true })

	trades := pf.ClosedTrades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 settled trade, got %d", len(trades))
	}
	if trades[0].CloseReason != domain.CloseReasonSuperseded {
		t.Errorf("expected SUPERSEDED close, got %s", trades[0].CloseReason)
	}
	if trades[0].ExitPrice == nil || *trades[0].ExitPrice != 90 {
		t.Errorf("expected exit at the superseding tick's price 90, got %v", trades[0].ExitPrice)
	}
}

func TestRun_Deterministic(t *testing.T) {
	start := int64(0)
	end := int64(48 * 60 * 60 * 1000)

	run := func() (*domain.BacktestResult, []domain.EquityPoint) {
		gen := NewSyntheticGenerator(42, DefaultSymbols())
		prices := gen.MarketSeries(start, end, DefaultStepMs)

		var signals []*domain.TradingSignal
		for i, sym := range gen.Symbols() {
			ts := int64(i+1) * 3_600_000
			size := 0.05
			sig := buySignal(sym, ts, size, nil, nil)
			if i%2 == 1 {
				sig = sellSignal(sym, ts, size, nil, nil)
			}
			signals = append(signals, sig)
		}

		eng, err := NewEngine(DefaultConfig())
		if err != nil {
			t.Fatal(err)
		}
		result, curve, err := eng.Run(context.Background(), signals, prices, start, end)
		if err != nil {
			t.Fatal(err)
		}
		return result, curve
	}

	r1, c1 := run()
	r2, c2 := run()

	if !reflect.DeepEqual(r1, r2) {
		t.Errorf("results differ between identical runs:\n%+v\n%+v", r1, r2)
	}
	if !reflect.DeepEqual(c1, c2) {
		t.Errorf("equity curves differ between identical runs")
	}
}

func TestRun_DrawdownMonotonicity(t *testing.T) {
	gen := NewSyntheticGenerator(7, []string{"BTC", "ETH"})
	start, end := int64(0), int64(72*60*60*1000)
	prices := gen.MarketSeries(start, end, DefaultStepMs)

	var signals []*domain.TradingSignal
	for i := int64(0); i < 12; i++ {
		asset := "BTC"
		if i%2 == 1 {
			asset = "ETH"
		}
		signals = append(signals, buySignal(asset, i*5_400_000, 0.1, nil, nil))
	}

	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	result, curve, err := eng.Run(context.Background(), signals, prices, start, end)
	if err != nil {
		t.Fatal(err)
	}

	var peakDD float64
	for i, pt := range curve {
		if pt.Drawdown < 0 {
			t.Fatalf("negative drawdown at point %d: %f", i, pt.Drawdown)
		}
		if pt.Drawdown > peakDD {
			peakDD = pt.Drawdown
		}
	}
	if math.Abs(result.MaxDrawdown-peakDD) > 1e-12 {
		t.Errorf("max drawdown %f does not match curve maximum %f", result.MaxDrawdown, peakDD)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = eng.Run(ctx, nil, nil, 0, 3_600_000)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestSummarize_Streaks(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)

	// close order: win, win, loss, win, loss, loss
	exits := []float64{110, 105, 95, 102, 90, 97}
	for i, exit := range exits {
		sig := buySignal("BTC", int64(i), 0.01, nil, nil)
		pos := newPosition(sig, 100, int64(i), DefaultMaxHoldMs)
		pos.close(exit, int64(i)+3_600_000, domain.CloseReasonTimeExit)
		pf.settle(pos)
	}

	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	result := eng.summarize(pf, nil, 0, 1)

	if result.TotalTrades != 6 {
		t.Fatalf("expected 6 trades, got %d", result.TotalTrades)
	}
	if got := result.Detail["max_consecutive_wins"]; got != 2 {
		t.Errorf("expected max win streak 2, got %v", got)
	}
	if got := result.Detail["max_consecutive_losses"]; got != 2 {
		t.Errorf("expected max loss streak 2, got %v", got)
	}
	if math.Abs(result.WinRate-0.5) > 1e-12 {
		t.Errorf("expected win rate 0.5, got %f", result.WinRate)
	}
	if got := result.Detail["largest_win"].(float64); math.Abs(got-0.10) > 1e-12 {
		t.Errorf("expected largest win 0.10, got %f", got)
	}
	if got := result.Detail["largest_loss"].(float64); math.Abs(got-(-0.10)) > 1e-12 {
		t.Errorf("expected largest loss -0.10, got %f", got)
	}
	if math.Abs(result.AvgTradeDurationHours-1) > 1e-12 {
		t.Errorf("expected 1h average duration, got %f", result.AvgTradeDurationHours)
	}
}

func TestSharpe(t *testing.T) {
	if got := sharpe(nil); got != 0 {
		t.Errorf("expected 0 for empty series, got %f", got)
	}
	if got := sharpe([]float64{0.1}); got != 0 {
		t.Errorf("expected 0 for single trade, got %f", got)
	}
	if got := sharpe([]float64{0.05, 0.05, 0.05}); got != 0 {
		t.Errorf("expected 0 for flat series, got %f", got)
	}

	returns := []float64{0.02, -0.01, 0.03, 0.01}
	mean := 0.0125
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= 4
	want := mean / math.Sqrt(variance) * math.Sqrt(252)
	if got := sharpe(returns); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected sharpe %f, got %f", want, got)
	}
}
