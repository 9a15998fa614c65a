// Package meanrev implements a z-score mean-reversion strategy: buy when
// price stretches far below its rolling mean, sell when it stretches far
// above.
package meanrev

import (
	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/indicator"
	"github.com/newthinker/rewind/internal/param"
	"github.com/newthinker/rewind/internal/strategy"
)

// Reversion is the strategy; the zero value is usable.
type Reversion struct{}

// New creates the mean-reversion strategy.
func New() *Reversion { return &Reversion{} }

func (*Reversion) Key() string  { return "mean_reversion" }
func (*Reversion) Name() string { return "Mean Reversion" }

func (*Reversion) Description() string {
	return "fade moves beyond a z-score threshold from the rolling mean"
}

func (*Reversion) Params() []param.Spec {
	return []param.Spec{
		{Key: "window", Kind: param.KindInt, Default: 20, Help: "rolling window length", Min: param.F(5), Max: param.F(200), Step: param.F(5)},
		{Key: "entry_z", Kind: param.KindFloat, Default: 2.0, Help: "z-score entry threshold", Min: param.F(0.5), Max: param.F(4.0), Step: param.F(0.5)},
	}
}

// Run emits a signal on the bar where the z-score first breaches the
// threshold; it stays silent while the stretch persists so one excursion
// produces one signal.
func (r *Reversion) Run(bars []core.Bar, params map[string]any) ([]core.Signal, error) {
	window := strategy.Int(params, "window")
	entryZ := strategy.Float(params, "entry_z")

	if len(bars) <= window {
		return nil, nil
	}

	zs := indicator.ZScore(strategy.Closes(bars), window)

	var signals []core.Signal
	// bar i maps to zs[i-window+1]; start at window so a previous value
	// exists for the breach test.
	for i := window; i < len(bars); i++ {
		curr, prev := zs[i-window+1], zs[i-window]

		var side core.Side
		switch {
		case curr < -entryZ && prev >= -entryZ:
			side = core.SideBuy
		case curr > entryZ && prev <= entryZ:
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
