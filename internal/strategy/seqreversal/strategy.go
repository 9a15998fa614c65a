// Package seqreversal implements a streak-reversal strategy: after a run of
// consecutive down closes it buys the expected bounce, after a run of up
// closes it sells.
package seqreversal

import (
	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/param"
	"github.com/newthinker/rewind/internal/strategy"
)

// Reversal is the strategy; the zero value is usable.
type Reversal struct{}

// New creates the streak-reversal strategy.
func New() *Reversal { return &Reversal{} }

func (*Reversal) Key() string  { return "seq_reversal" }
func (*Reversal) Name() string { return "Sequence Reversal" }

func (*Reversal) Description() string {
	return "fade a streak of consecutive closes in one direction"
}

func (*Reversal) Params() []param.Spec {
	return []param.Spec{
		{Key: "streak", Kind: param.KindInt, Default: 3, Help: "consecutive closes required", Min: param.F(2), Max: param.F(10), Step: param.F(1)},
	}
}

// Run emits exactly when the streak count reaches the threshold; a longer
// streak does not re-signal until the direction breaks and rebuilds.
func (r *Reversal) Run(bars []core.Bar, params map[string]any) ([]core.Signal, error) {
	streak := strategy.Int(params, "streak")

	var signals []core.Signal
	var up, down int
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close < bars[i-1].Close:
			down++
			up = 0
		case bars[i].Close > bars[i-1].Close:
			up++
			down = 0
		default:
			up, down = 0, 0
			continue
		}

		var side core.Side
		switch {
		case down == streak:
			side = core.SideBuy
		case up == streak:
			side = core.SideSell
		default:
			continue
		}
		signals = append(signals, core.Signal{
			Time:   bars[i].Time,
			Side:   side,
			Price:  bars[i].Close,
			Source: r.Key(),
		})
	}
	return signals, nil
}
