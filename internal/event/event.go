// Package event defines the typed, append-only event stream emitted by the
// execution engine. The wire form of this stream is the only contract
// downstream consumers may rely on: identical log, identical derived state.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/newthinker/rewind/internal/core"
)

// Type discriminates wire events.
type Type string

const (
	TypeBar         Type = "BarEvent"
	TypeSignal      Type = "SignalEvent"
	TypeFill        Type = "FillEvent"
	TypeTradeClosed Type = "TradeClosedEvent"
	TypeEquity      Type = "EquityEvent"
)

// Event is the closed sum over the five stream event kinds. The unexported
// method keeps the set closed so consumers can switch exhaustively.
type Event interface {
	Time() time.Time
	Type() Type
	isEvent()
}

// Bar mirrors one input bar into the stream.
type Bar struct {
	At     time.Time `json:"-"`
	Index  int       `json:"index"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

func (e Bar) Time() time.Time { return e.At }
func (Bar) Type() Type        { return TypeBar }
func (Bar) isEvent()          {}

// Signal records a strategy intent at the bar it originated on.
type Signal struct {
	At     time.Time `json:"-"`
	Side   core.Side `json:"side"`
	Price  float64   `json:"price"`
	Source string    `json:"source"`
}

func (e Signal) Time() time.Time { return e.At }
func (Signal) Type() Type        { return TypeSignal }
func (Signal) isEvent()          {}

// Fill is the executed effect of a signal or exit trigger on the position,
// after latency and slippage.
type Fill struct {
	At            time.Time       `json:"-"`
	Action        core.FillAction `json:"action"`
	Side          core.Side       `json:"side"`
	Price         float64         `json:"price"`
	IntendedPrice float64         `json:"intended_price"`
	SlippageBps   float64         `json:"slippage_bps"`
	LatencyBars   int             `json:"latency_bars"`
	SubmittedAt   time.Time       `json:"submitted_time"`
	Qty           float64         `json:"qty"`
	Reason        string          `json:"reason,omitempty"`
}

func (e Fill) Time() time.Time { return e.At }
func (Fill) Type() Type        { return TypeFill }
func (Fill) isEvent()          {}

// TradeClosed records one completed round trip. Exit time is the event time.
type TradeClosed struct {
	At         time.Time        `json:"-"`
	EntryTime  time.Time        `json:"entry_time"`
	Side       core.Side        `json:"side"`
	EntryPrice float64          `json:"entry_price"`
	ExitPrice  float64          `json:"exit_price"`
	Qty        float64          `json:"qty"`
	PnL        float64          `json:"pnl"`
	PnLPct     float64          `json:"pnl_pct"`
	Reason     core.CloseReason `json:"reason"`
}

func (e TradeClosed) Time() time.Time { return e.At }
func (TradeClosed) Type() Type        { return TypeTradeClosed }
func (TradeClosed) isEvent()          {}

// Equity is the per-bar equity snapshot: realized plus mark-to-market
// unrealized PnL at the bar close. Exactly one per bar, after fills.
type Equity struct {
	At     time.Time `json:"-"`
	Equity float64   `json:"equity"`
}

func (e Equity) Time() time.Time { return e.At }
func (Equity) Type() Type        { return TypeEquity }
func (Equity) isEvent()          {}

// envelope is the self-describing wire record:
// {"time": <RFC3339>, "type": "<Type>", "payload": {flat fields}}
type envelope struct {
	Time    time.Time       `json:"time"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal encodes one event as a single wire record.
func Marshal(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", ev.Type(), err)
	}
	return json.Marshal(envelope{Time: ev.Time().UTC(), Type: ev.Type(), Payload: payload})
}

// Unmarshal decodes one wire record back into a typed event. Unknown payload
// fields are ignored so older consumers tolerate newer producers; an unknown
// type is an error because the sum type is closed.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, core.WrapError(core.ErrInputInvalid, fmt.Errorf("decoding event envelope: %w", err))
	}

	decode := func(v any) error {
		if len(env.Payload) == 0 {
			return nil
		}
		return json.Unmarshal(env.Payload, v)
	}

	var (
		ev  Event
		err error
	)
	switch env.Type {
	case TypeBar:
		var e Bar
		err = decode(&e)
		e.At = env.Time
		ev = e
	case TypeSignal:
		var e Signal
		err = decode(&e)
		e.At = env.Time
		ev = e
	case TypeFill:
		var e Fill
		err = decode(&e)
		e.At = env.Time
		ev = e
	case TypeTradeClosed:
		var e TradeClosed
		err = decode(&e)
		e.At = env.Time
		ev = e
	case TypeEquity:
		var e Equity
		err = decode(&e)
		e.At = env.Time
		ev = e
	default:
		return nil, core.WrapError(core.ErrInputInvalid, fmt.Errorf("unknown event type %q", env.Type))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrInputInvalid, fmt.Errorf("decoding %s payload: %w", env.Type, err))
	}
	return ev, nil
}
