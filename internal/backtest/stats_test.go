package backtest

import (
	"math"
	"testing"
	"time"
)

func tradeWithPnL(pnl float64, held time.Duration) Trade {
	return Trade{
		EntryTime: t0,
		ExitTime:  t0.Add(held),
		PnL:       pnl,
	}
}

func TestComputeMetrics_ProfitFactor(t *testing.T) {
	res := &Result{
		Trades: []Trade{
			tradeWithPnL(100, 24*time.Hour),
			tradeWithPnL(-50, 48*time.Hour),
		},
		Curve: []EquityPoint{{Time: t0, Equity: 1050}},
	}
	m := ComputeMetrics(res, 1000)

	if m.ProfitFactor != 2.0 {
		t.Errorf("profit factor = %v, want 2.0", m.ProfitFactor)
	}
	if m.WinRate != 0.5 {
		t.Errorf("win rate = %v, want 0.5", m.WinRate)
	}
	if m.TotalTrades != 2 {
		t.Errorf("total trades = %d, want 2", m.TotalTrades)
	}
	if m.AvgTradeDuration != 36*time.Hour {
		t.Errorf("avg duration = %v, want 36h", m.AvgTradeDuration)
	}
	if math.Abs(m.NetPct-0.05) > 1e-9 {
		t.Errorf("net pct = %v, want 0.05", m.NetPct)
	}
}

func TestComputeMetrics_NoLossesIsInf(t *testing.T) {
	res := &Result{Trades: []Trade{tradeWithPnL(30, time.Hour)}}
	m := ComputeMetrics(res, 1000)
	if !math.IsInf(m.ProfitFactor, 1) {
		t.Errorf("profit factor = %v, want +Inf", m.ProfitFactor)
	}
	if m.WinRate != 1 {
		t.Errorf("win rate = %v, want 1", m.WinRate)
	}
}

func TestComputeMetrics_ZeroTrades(t *testing.T) {
	res := &Result{}
	m := ComputeMetrics(res, 1000)

	if m.TotalTrades != 0 || m.WinRate != 0 || m.ProfitFactor != 0 {
		t.Errorf("zero-trade metrics = %+v", m)
	}
	if m.NetPct != 0 {
		t.Errorf("net pct = %v, want 0 (curve empty falls back to initial)", m.NetPct)
	}
	if m.AvgTradeDuration != 0 {
		t.Errorf("avg duration = %v, want 0", m.AvgTradeDuration)
	}
}

func TestComputeMetrics_MaxDrawdown(t *testing.T) {
	res := &Result{Curve: []EquityPoint{
		{Equity: 100},
		{Equity: 120},
		{Equity: 90}, // 25% off the 120 peak
		{Equity: 130},
		{Equity: 110},
	}}
	m := ComputeMetrics(res, 100)
	if math.Abs(m.MaxDrawdownPct-0.25) > 1e-9 {
		t.Errorf("max drawdown = %v, want 0.25", m.MaxDrawdownPct)
	}
}

func TestComputeMetrics_BreakEvenTradeCountsAsLossSide(t *testing.T) {
	res := &Result{Trades: []Trade{tradeWithPnL(0, time.Hour), tradeWithPnL(10, time.Hour)}}
	m := ComputeMetrics(res, 1000)
	// a zero-PnL trade is not a win and contributes no gross loss
	if m.WinRate != 0.5 {
		t.Errorf("win rate = %v, want 0.5", m.WinRate)
	}
	if !math.IsInf(m.ProfitFactor, 1) {
		t.Errorf("profit factor = %v, want +Inf", m.ProfitFactor)
	}
}
