// Package smacross implements a moving average crossover strategy: a buy
// when the fast average crosses above the slow one, a sell on the opposite
// cross.
package smacross

import (
	"fmt"

	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/indicator"
	"github.com/newthinker/rewind/internal/param"
	"github.com/newthinker/rewind/internal/strategy"
)

const (
	MATypeSMA = "sma"
	MATypeEMA = "ema"
)

// Crossover is the strategy; the zero value is usable.
type Crossover struct{}

// New creates the crossover strategy.
func New() *Crossover { return &Crossover{} }

func (*Crossover) Key() string  { return "sma_cross" }
func (*Crossover) Name() string { return "MA Crossover" }

func (*Crossover) Description() string {
	return "buy when the fast moving average crosses above the slow, sell on the cross below"
}

func (*Crossover) Params() []param.Spec {
	return []param.Spec{
		{Key: "fast", Kind: param.KindInt, Default: 10, Help: "fast average period", Min: param.F(2), Max: param.F(100), Step: param.F(1)},
		{Key: "slow", Kind: param.KindInt, Default: 30, Help: "slow average period", Min: param.F(5), Max: param.F(300), Step: param.F(5)},
		{Key: "ma_type", Kind: param.KindString, Default: MATypeSMA, Help: "sma or ema"},
	}
}

// Run scans the whole series and emits one signal per crossover bar, at the
// bar's close.
func (c *Crossover) Run(bars []core.Bar, params map[string]any) ([]core.Signal, error) {
	fast := strategy.Int(params, "fast")
	slow := strategy.Int(params, "slow")
	maType := strategy.String(params, "ma_type")

	if fast >= slow {
		return nil, core.WrapError(core.ErrParamOutOfRange,
			fmt.Errorf("fast period %d must be below slow period %d", fast, slow))
	}
	avg := indicator.SMA
	switch maType {
	case MATypeSMA:
	case MATypeEMA:
		avg = indicator.EMA
	default:
		return nil, core.WrapError(core.ErrParamOutOfRange,
			fmt.Errorf("ma_type must be %q or %q, got %q", MATypeSMA, MATypeEMA, maType))
	}
	if len(bars) <= slow {
		return nil, nil
	}

	prices := strategy.Closes(bars)
	fastMA := avg(prices, fast)
	slowMA := avg(prices, slow)

	var signals []core.Signal
	// bar i maps to fastMA[i-fast+1] and slowMA[i-slow+1]; the first bar
	// with both a current and a previous slow value is index slow.
	for i := slow; i < len(bars); i++ {
		currFast, prevFast := fastMA[i-fast+1], fastMA[i-fast]
		currSlow, prevSlow := slowMA[i-slow+1], slowMA[i-slow]

		var side core.Side
		switch {
		case prevFast <= prevSlow && currFast > currSlow:
			side = core.SideBuy
		case prevFast >= prevSlow && currFast < currSlow:
			side = core.SideSell
		default:
			continue
		}
		signals = append(signals, core.Signal{
			Time:   bars[i].Time,
			Side:   side,
			Price:  bars[i].Close,
			Source: c.Key(),
		})
	}
	return signals, nil
}
