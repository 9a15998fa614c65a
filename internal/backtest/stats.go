package backtest

import (
	"encoding/json"
	"math"
	"time"
)

// Metrics summarizes one backtest result. All fields are defined for a
// zero-trade run so optimizers never branch on emptiness.
type Metrics struct {
	NetPct           float64       `json:"net_pct"`
	MaxDrawdownPct   float64       `json:"max_drawdown_pct"`
	ProfitFactor     float64       `json:"profit_factor"`
	WinRate          float64       `json:"win_rate"`
	TotalTrades      int           `json:"total_trades"`
	AvgTradeDuration time.Duration `json:"avg_trade_duration"`
}

// ComputeMetrics derives summary metrics from a result. NetPct and
// MaxDrawdownPct are fractions (0.05 = 5%). ProfitFactor is gross profit
// over gross loss; with no losses it is +Inf when any profit exists and 0
// otherwise, a sentinel objectives are expected to clamp.
func ComputeMetrics(res *Result, initialEquity float64) Metrics {
	m := Metrics{
		NetPct:         netPct(res, initialEquity),
		MaxDrawdownPct: maxDrawdown(res.Curve),
		TotalTrades:    len(res.Trades),
	}

	var grossProfit, grossLoss float64
	var wins int
	var held time.Duration
	for _, t := range res.Trades {
		if t.PnL > 0 {
			grossProfit += t.PnL
			wins++
		} else {
			grossLoss += -t.PnL
		}
		held += t.Duration()
	}

	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}
	if len(res.Trades) > 0 {
		m.WinRate = float64(wins) / float64(len(res.Trades))
		m.AvgTradeDuration = held / time.Duration(len(res.Trades))
	}
	return m
}

// metricsJSON carries ProfitFactor as a pointer because encoding/json has
// no representation for the +Inf sentinel; it becomes null on the wire.
type metricsJSON struct {
	NetPct           float64       `json:"net_pct"`
	MaxDrawdownPct   float64       `json:"max_drawdown_pct"`
	ProfitFactor     *float64      `json:"profit_factor"`
	WinRate          float64       `json:"win_rate"`
	TotalTrades      int           `json:"total_trades"`
	AvgTradeDuration time.Duration `json:"avg_trade_duration"`
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	out := metricsJSON{
		NetPct:           m.NetPct,
		MaxDrawdownPct:   m.MaxDrawdownPct,
		WinRate:          m.WinRate,
		TotalTrades:      m.TotalTrades,
		AvgTradeDuration: m.AvgTradeDuration,
	}
	if !math.IsInf(m.ProfitFactor, 0) && !math.IsNaN(m.ProfitFactor) {
		out.ProfitFactor = &m.ProfitFactor
	}
	return json.Marshal(out)
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	var in metricsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = Metrics{
		NetPct:           in.NetPct,
		MaxDrawdownPct:   in.MaxDrawdownPct,
		ProfitFactor:     math.Inf(1), // null only ever encodes the no-loss sentinel
		WinRate:          in.WinRate,
		TotalTrades:      in.TotalTrades,
		AvgTradeDuration: in.AvgTradeDuration,
	}
	if in.ProfitFactor != nil {
		m.ProfitFactor = *in.ProfitFactor
	}
	return nil
}

func netPct(res *Result, initial float64) float64 {
	if initial == 0 {
		return 0
	}
	return res.FinalEquity(initial)/initial - 1
}

// maxDrawdown is the largest peak-to-trough decline over the curve, as a
// fraction of the peak. Zero for flat or monotonically rising curves.
func maxDrawdown(curve []EquityPoint) float64 {
	var peak, worst float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
