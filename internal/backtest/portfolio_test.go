package backtest

import (
	"math"
	"testing"

	"sentiment-lab/internal/domain"
)

func TestAcceptSignal_HoldRejected(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)
	sig := buySignal("BTC", 0, 0.1, nil, nil)
	sig.Direction = domain.DirectionHold

	if pf.AcceptSignal(sig, 100, 0) {
		t.Fatal("HOLD signal must be rejected")
	}
	if pf.OpenCount() != 0 {
		t.Errorf("expected no open positions, got %d", pf.OpenCount())
	}
}

func TestAcceptSignal_ExposureCap(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)
	sig := buySignal("BTC", 0, 0.96, nil, nil)

	if pf.AcceptSignal(sig, 100, 0) {
		t.Fatal("signal above 95% exposure must be rejected")
	}
	if pf.OpenCount() != 0 {
		t.Errorf("expected no open positions, got %d", pf.OpenCount())
	}
	if pf.Capital() != 100_000 {
		t.Errorf("capital must be unchanged on rejection, got %f", pf.Capital())
	}

	// exactly at the cap is allowed
	atCap := buySignal("ETH", 0, 0.95, nil, nil)
	if !pf.AcceptSignal(atCap, 100, 0) {
		t.Error("signal at exactly 95% exposure should be accepted")
	}
}

func TestSettlement_TakeProfit(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)
	sig := buySignal("BTC", 0, 0.1, fptr(90), fptr(120))

	if !pf.AcceptSignal(sig, 100, 0) {
		t.Fatal("signal should be accepted")
	}

	price := 120.0
	pf.MarkToMarket(60_000, func(string) (float64, bool) { return price, true })

	if pf.OpenCount() != 0 {
		t.Fatalf("position should have settled, %d still open", pf.OpenCount())
	}
	trades := pf.ClosedTrades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 closed trade, got %d", len(trades))
	}
	if trades[0].RealizedPnlFraction != 0.2 {
		t.Errorf("expected realized fraction 0.2, got %f", trades[0].RealizedPnlFraction)
	}
	// capital = 100000 + 0.2 * 0.1 * 100000
	if math.Abs(pf.Capital()-102_000) > 1e-9 {
		t.Errorf("expected capital 102000, got %f", pf.Capital())
	}
}

func TestAcceptSignal_SupersedesSameAsset(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)

	first := buySignal("BTC", 0, 0.1, nil, nil)
	second := sellSignal("BTC", 60_000, 0.1, nil, nil)

	if !pf.AcceptSignal(first, 100, 0) {
		t.Fatal("first signal should be accepted")
	}
	if !pf.AcceptSignal(second, 110, 60_000) {
		t.Fatal("second signal should be accepted")
	}

	if pf.OpenCount() != 1 {
		t.Fatalf("expected exactly one open position per asset, got %d", pf.OpenCount())
	}
	if got := pf.OpenPosition("BTC").Signal.Direction; got != domain.DirectionSell {
		t.Errorf("open position should be the newer signal, got %s", got)
	}

	trades := pf.ClosedTrades()
	if len(trades) != 1 {
		t.Fatalf("expected superseded trade in history, got %d", len(trades))
	}
	if trades[0].CloseReason != domain.CloseReasonSuperseded {
		t.Errorf("expected SUPERSEDED, got %s", trades[0].CloseReason)
	}
	if math.Abs(trades[0].RealizedPnlFraction-0.1) > 1e-9 {
		t.Errorf("superseded trade realized at current price: want 0.1, got %f", trades[0].RealizedPnlFraction)
	}
}

func TestObserve_DrawdownNeverNegative(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)

	// equity rising through the prior peak must yield zero drawdown, not a
	// negative one
	samples := []float64{100_000, 105_000, 101_000, 110_000, 99_000}
	var maxDD float64
	for i, eq := range samples {
		pt := pf.Observe(int64(i), eq)
		if pt.Drawdown < 0 {
			t.Errorf("drawdown negative at sample %d: %f", i, pt.Drawdown)
		}
		if pt.Drawdown > maxDD {
			maxDD = pt.Drawdown
		}
	}
	want := (110_000.0 - 99_000.0) / 110_000.0
	if math.Abs(maxDD-want) > 1e-12 {
		t.Errorf("expected max drawdown %f, got %f", want, maxDD)
	}
}

func TestEquity_IncludesUnrealized(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)
	sig := buySignal("BTC", 0, 0.1, nil, nil)
	if !pf.AcceptSignal(sig, 100, 0) {
		t.Fatal("signal should be accepted")
	}

	eq := pf.Equity(func(string) (float64, bool) { return 110, true })
	// 100000 + 0.1 (excursion) * 0.1 (size) * 100000
	if math.Abs(eq-101_000) > 1e-9 {
		t.Errorf("expected equity 101000, got %f", eq)
	}

	// no price available: unrealized leg omitted
	eq = pf.Equity(func(string) (float64, bool) { return 0, false })
	if eq != 100_000 {
		t.Errorf("expected equity 100000 without prices, got %f", eq)
	}
}

func TestCloseAll_RealizesEverything(t *testing.T) {
	pf := newPortfolio(100_000, DefaultMaxHoldMs)
	if !pf.AcceptSignal(buySignal("BTC", 0, 0.1, nil, nil), 100, 0) {
		t.Fatal("BTC signal should be accepted")
	}
	if !pf.AcceptSignal(buySignal("ETH", 0, 0.2, nil, nil), 50, 0) {
		t.Fatal("ETH signal should be accepted")
	}

	pf.CloseAll(60_000, func(asset string) (float64, bool) {
		if asset == "BTC" {
			return 105, true
		}
		return 45, true
	})

	if pf.OpenCount() != 0 {
		t.Fatalf("expected all positions closed, %d open", pf.OpenCount())
	}
	if len(pf.ClosedTrades()) != 2 {
		t.Fatalf("expected 2 closed trades, got %d", len(pf.ClosedTrades()))
	}
	for _, tr := range pf.ClosedTrades() {
		if tr.CloseReason != domain.CloseReasonTimeExit {
			t.Errorf("force close should record TIME_EXIT, got %s", tr.CloseReason)
		}
	}
}
