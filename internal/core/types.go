package core

import "time"

// Side is the direction of a signal or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// IsValid reports whether the side is one of the two known values.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Bar represents one OHLCV observation for a time interval.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64 // 0 when the feed carries no volume
}

// Signal is a strategy-declared intent to buy or sell, not yet an executed
// order. Time must match an existing bar in the series the signal was
// generated from; Price is the strategy's reference price.
type Signal struct {
	Time   time.Time
	Side   Side
	Price  float64
	Source string
}

// CloseReason explains why a trade was closed.
type CloseReason string

const (
	ReasonStopLoss     CloseReason = "SL"
	ReasonTakeProfit   CloseReason = "TP"
	ReasonTrailingStop CloseReason = "TRAIL"
	ReasonSignal       CloseReason = "SIGNAL"
	ReasonReverse      CloseReason = "REVERSE"
	ReasonEndOfData    CloseReason = "END_OF_DATA"
)

// FillAction is the effect a fill has on the single position.
type FillAction string

const (
	ActionOpen    FillAction = "OPEN"
	ActionClose   FillAction = "CLOSE"
	ActionReverse FillAction = "REVERSE"
)
