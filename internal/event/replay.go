package event

import (
	"time"

	"github.com/newthinker/rewind/internal/core"
)

// Position is the replay-derived open position state.
type Position struct {
	Side       core.Side
	Qty        float64
	EntryPrice float64
	EntryTime  time.Time
}

// Replayer reconstructs position, equity, and trade history purely by linear
// replay of Fill/TradeClosed/Equity events. It never sees engine internals,
// so its state is a pure function of the log prefix applied so far.
type Replayer struct {
	position *Position
	equity   float64
	trades   []TradeClosed
	fills    []Fill
	curve    []Equity
	applied  int
}

// NewReplayer starts with no position and no equity observed.
func NewReplayer() *Replayer {
	return &Replayer{}
}

// Apply folds one event into the derived state. Handling is exhaustive over
// the closed event sum; Bar and Signal events carry no derived state.
func (r *Replayer) Apply(ev Event) {
	r.applied++
	switch e := ev.(type) {
	case Bar, Signal:
		// informational only
	case Fill:
		r.fills = append(r.fills, e)
		switch e.Action {
		case core.ActionOpen:
			r.position = &Position{Side: e.Side, Qty: e.Qty, EntryPrice: e.Price, EntryTime: e.At}
		case core.ActionClose:
			r.position = nil
		case core.ActionReverse:
			// one fill closes the old position and opens the new one
			r.position = &Position{Side: e.Side, Qty: e.Qty, EntryPrice: e.Price, EntryTime: e.At}
		}
	case TradeClosed:
		r.trades = append(r.trades, e)
	case Equity:
		r.equity = e.Equity
		r.curve = append(r.curve, e)
	}
}

// ApplyAll folds a sequence of events in order.
func (r *Replayer) ApplyAll(events []Event) {
	for _, ev := range events {
		r.Apply(ev)
	}
}

// Position returns the currently open position, or false when flat.
func (r *Replayer) Position() (Position, bool) {
	if r.position == nil {
		return Position{}, false
	}
	return *r.position, true
}

// Equity returns the latest replayed equity snapshot value.
func (r *Replayer) Equity() float64 { return r.equity }

// EquityCurve returns every equity snapshot seen so far.
func (r *Replayer) EquityCurve() []Equity { return r.curve }

// Trades returns every closed trade seen so far.
func (r *Replayer) Trades() []TradeClosed { return r.trades }

// Fills returns every fill seen so far.
func (r *Replayer) Fills() []Fill { return r.fills }

// Applied returns the number of events folded in.
func (r *Replayer) Applied() int { return r.applied }
