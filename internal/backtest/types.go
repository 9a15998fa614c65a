package backtest

import (
	"time"

	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/event"
)

// Trade is one completed round trip from entry fill to exit fill.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Side       core.Side
	EntryPrice float64
	ExitPrice  float64
	Qty        float64
	PnL        float64
	PnLPct     float64
	Reason     core.CloseReason
}

// Duration is the holding period of the trade.
func (t Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// IsWin reports whether the trade realized a profit.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// EquityPoint is one mark-to-market equity observation, one per bar.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Result holds the complete output of one engine run. Events is the typed
// log; everything else is derivable from it by replay.
type Result struct {
	Trades []Trade
	Curve  []EquityPoint
	Events []event.Event

	// OpenedPositions counts position-opening fills (OPEN plus REVERSE).
	// It always equals len(Trades) because end-of-data forces closure.
	OpenedPositions int

	// DroppedFills counts delayed fills whose target bar lay beyond the
	// data horizon. Logged, never fatal.
	DroppedFills int
}

// FinalEquity returns the last point of the equity curve, or the initial
// equity when the curve is empty.
func (r *Result) FinalEquity(initial float64) float64 {
	if len(r.Curve) == 0 {
		return initial
	}
	return r.Curve[len(r.Curve)-1].Equity
}
