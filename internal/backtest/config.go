package backtest

import (
	"fmt"

	"github.com/newthinker/rewind/internal/core"
)

// SizePolicy selects how position quantity is derived at fill time.
type SizePolicy string

const (
	// SizeRisk risks RiskPerTrade of current equity against the stop
	// distance. Falls back to SizeFull when no stop is configured.
	SizeRisk SizePolicy = "risk"
	// SizeFull commits the full current equity at the fill price.
	SizeFull SizePolicy = "full"
)

// Config holds execution-engine settings for a single run. Percentages are
// fractions of entry price (0.01 = 1%); a zero stop/take/trailing disables
// that exit.
type Config struct {
	InitialEquity float64    `mapstructure:"initial_equity"`
	SizePolicy    SizePolicy `mapstructure:"position_size_policy"`
	RiskPerTrade  float64    `mapstructure:"risk_per_trade"`

	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `mapstructure:"take_profit_pct"`
	TrailingStopPct float64 `mapstructure:"trailing_stop_pct"`
	AllowReverse    bool    `mapstructure:"allow_reverse"`

	EntrySlippageBps float64 `mapstructure:"entry_slippage_bps"`
	ExitSlippageBps  float64 `mapstructure:"exit_slippage_bps"`
	EntryLatencyBars int     `mapstructure:"entry_latency_bars"`
	ExitLatencyBars  int     `mapstructure:"exit_latency_bars"`
}

// DefaultConfig mirrors the documented engine defaults.
func DefaultConfig() Config {
	return Config{
		InitialEquity: 100_000,
		SizePolicy:    SizeRisk,
		RiskPerTrade:  0.01,
		StopLossPct:   0.01,
		TakeProfitPct: 0.02,
		AllowReverse:  true,
	}
}

// Validate rejects out-of-range settings before any execution starts.
func (c Config) Validate() error {
	if c.InitialEquity <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_equity must be positive, got %v", c.InitialEquity))
	}
	if c.SizePolicy != SizeRisk && c.SizePolicy != SizeFull {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown position_size_policy %q", c.SizePolicy))
	}
	if c.SizePolicy == SizeRisk && (c.RiskPerTrade <= 0 || c.RiskPerTrade > 1) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_per_trade must be in (0, 1], got %v", c.RiskPerTrade))
	}
	for name, v := range map[string]float64{
		"stop_loss_pct":     c.StopLossPct,
		"take_profit_pct":   c.TakeProfitPct,
		"trailing_stop_pct": c.TrailingStopPct,
	} {
		if v < 0 || v >= 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s must be in [0, 1), got %v", name, v))
		}
	}
	if c.EntrySlippageBps < 0 || c.ExitSlippageBps < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("slippage bps cannot be negative (entry %v, exit %v)",
				c.EntrySlippageBps, c.ExitSlippageBps))
	}
	if c.EntryLatencyBars < 0 || c.ExitLatencyBars < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("latency bars cannot be negative (entry %d, exit %d)",
				c.EntryLatencyBars, c.ExitLatencyBars))
	}
	return nil
}
