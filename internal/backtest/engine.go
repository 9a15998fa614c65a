// Package backtest implements the deterministic bar-by-bar execution engine:
// a single-position state machine (FLAT, LONG, SHORT) with stop-loss,
// take-profit, trailing-stop, execution latency, and slippage, emitting the
// typed event log that downstream consumers replay.
package backtest

import (
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/event"
)

// Engine runs backtests for one validated configuration. An Engine is
// stateless across runs; all per-run state lives in the run struct, so a
// single Engine value may be shared by parallel sweep evaluations.
type Engine struct {
	cfg Config
	log *zap.Logger
}

// New validates the configuration and returns an engine.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: logger}, nil
}

// position is the open-position state threaded through the bar loop.
type position struct {
	side       core.Side
	qty        float64
	entryPrice float64
	entryTime  time.Time
	stop       float64 // 0 disables
	take       float64 // 0 disables
	best       float64 // favorable extreme since entry, for trailing
}

// pending is a scheduled fill waiting out its latency. Due at submitBar +
// latency; latency 0 executes the same bar at the intended price, latency
// N >= 1 at the open of the target bar.
type pending struct {
	side      core.Side // entry/reverse target side
	intended  float64
	reason    core.CloseReason
	submitted time.Time
	submitBar int
	latency   int
	reverse   bool
}

func (p *pending) dueAt(bar int) bool { return bar >= p.submitBar+p.latency }

// run owns all mutable state for a single backtest; it is created per call
// and discarded at run end, never shared.
type run struct {
	cfg    Config
	log    *zap.Logger
	bars   []core.Bar
	equity float64 // realized

	pos          *position
	pendingEntry *pending
	pendingExit  *pending

	events    []event.Event
	barTrades []event.TradeClosed // flushed after the bar's fills
	result    Result
}

// Run executes the configured simulation over a validated bar series and an
// ordered signal sequence. The returned event log is the reproducibility
// contract: identical inputs yield an identical log.
func (e *Engine) Run(bars []core.Bar, signals []core.Signal) (*Result, error) {
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	if err := core.ValidateSignals(signals, bars); err != nil {
		return nil, err
	}

	r := &run{cfg: e.cfg, log: e.log, bars: bars, equity: e.cfg.InitialEquity}

	sigIdx := 0
	last := len(bars) - 1
	for i, bar := range bars {
		r.emit(event.Bar{At: bar.Time, Index: i, Open: bar.Open, High: bar.High, Low: bar.Low, Close: bar.Close, Volume: bar.Volume})

		// Signals originating on this bar surface immediately after the
		// bar event; their execution effects follow below.
		var barSignals []core.Signal
		for sigIdx < len(signals) && !signals[sigIdx].Time.After(bar.Time) {
			s := signals[sigIdx]
			sigIdx++
			r.emit(event.Signal{At: s.Time, Side: s.Side, Price: s.Price, Source: s.Source})
			barSignals = append(barSignals, s)
		}

		// 1. Exits first: due pending exit fills, then fresh exit
		// condition evaluation on the open position.
		if r.pendingExit != nil && r.pos != nil && r.pendingExit.dueAt(i) {
			r.executeExit(i)
		}
		if r.pos != nil && r.pendingExit == nil {
			r.evaluateExits(i)
		}

		// 2. Delayed signal effects whose effective bar is this one.
		if r.pendingEntry != nil && r.pendingEntry.dueAt(i) {
			r.executeEntry(i)
		}

		// 3. Fresh signals OPEN, REVERSE, or are ignored while an order
		// is already in flight.
		for _, s := range barSignals {
			r.applySignal(i, s)
		}

		// Any position still open at the final bar is force-closed so the
		// equity curve fully realizes.
		if i == last && r.pos != nil {
			r.closeAtEndOfData(bar)
		}

		r.flushTrades()
		r.markEquity(bar)
	}

	r.dropStalePending(last)

	r.result.Events = r.events
	res := r.result
	return &res, nil
}

// applySignal routes one fresh signal according to the position state.
func (r *run) applySignal(bar int, s core.Signal) {
	switch {
	case r.pos == nil && r.pendingEntry == nil:
		r.pendingEntry = &pending{
			side:      s.Side,
			intended:  s.Price,
			reason:    core.ReasonSignal,
			submitted: s.Time,
			submitBar: bar,
			latency:   r.cfg.EntryLatencyBars,
		}
		if r.pendingEntry.dueAt(bar) {
			r.executeEntry(bar)
		}
	case r.pos != nil && r.cfg.AllowReverse && s.Side != r.pos.side &&
		r.pendingExit == nil && r.pendingEntry == nil:
		// A reverse runs on the exit-latency clock: the close leg and the
		// immediate re-open both land on the flip bar.
		r.pendingEntry = &pending{
			side:      s.Side,
			intended:  s.Price,
			reason:    core.ReasonReverse,
			submitted: s.Time,
			submitBar: bar,
			latency:   r.cfg.ExitLatencyBars,
			reverse:   true,
		}
		if r.pendingEntry.dueAt(bar) {
			r.executeEntry(bar)
		}
	}
	// Same-side signals while positioned, and signals while an order is
	// already pending, are ignored under the single-position model.
}

// evaluateExits checks stop-loss, take-profit, and trailing-stop against the
// bar range. When both the stop and take levels fall inside one bar's range
// the stop is assumed hit first; this pessimistic tie-break is fixed engine
// policy. The trailing extreme is refreshed from this bar
// before the trailing level is tested and never loosens.
func (r *run) evaluateExits(bar int) {
	p := r.pos
	b := r.bars[bar]

	if p.side == core.SideBuy {
		p.best = maxF(p.best, b.High)
	} else {
		p.best = minF(p.best, b.Low)
	}

	var (
		level  float64
		reason core.CloseReason
		hit    bool
	)
	switch {
	case p.stop > 0 && hitLevel(p.side, b, p.stop, false):
		level, reason, hit = p.stop, core.ReasonStopLoss, true
	case p.take > 0 && hitLevel(p.side, b, p.take, true):
		level, reason, hit = p.take, core.ReasonTakeProfit, true
	case r.cfg.TrailingStopPct > 0:
		dist := r.cfg.TrailingStopPct * p.entryPrice
		trail := p.best - dist
		if p.side == core.SideSell {
			trail = p.best + dist
		}
		if hitLevel(p.side, b, trail, false) {
			level, reason, hit = trail, core.ReasonTrailingStop, true
		}
	}
	if !hit {
		return
	}

	r.pendingExit = &pending{
		intended:  level,
		reason:    reason,
		submitted: b.Time,
		submitBar: bar,
		latency:   r.cfg.ExitLatencyBars,
	}
	if r.pendingExit.dueAt(bar) {
		r.executeExit(bar)
	}
}

// hitLevel reports whether a protective (stop-side) or profit (take-side)
// level was touched by the bar range.
func hitLevel(side core.Side, b core.Bar, level float64, favorable bool) bool {
	if side == core.SideBuy {
		if favorable {
			return b.High >= level
		}
		return b.Low <= level
	}
	if favorable {
		return b.Low <= level
	}
	return b.High >= level
}

// executeEntry fills a due pending entry or reverse.
func (r *run) executeEntry(bar int) {
	p := r.pendingEntry
	b := r.bars[bar]

	base := p.intended
	fillTime := p.submitted
	if p.latency > 0 {
		base = b.Open
		fillTime = b.Time
	}

	if p.reverse {
		if r.pos == nil {
			// The position closed on its own before the flip came due;
			// degrade to a plain entry at the same price basis.
			p.reverse = false
		} else {
			r.reverseInto(p, base, fillTime)
			r.pendingEntry = nil
			return
		}
	}
	if r.pos != nil {
		return // still positioned; entry waits until flat
	}

	price := applySlippage(base, p.side, r.cfg.EntrySlippageBps)
	qty := r.positionSize(price)
	r.openPosition(p.side, price, qty, fillTime)
	r.emit(event.Fill{
		At:            fillTime,
		Action:        core.ActionOpen,
		Side:          p.side,
		Price:         price,
		IntendedPrice: p.intended,
		SlippageBps:   r.cfg.EntrySlippageBps,
		LatencyBars:   p.latency,
		SubmittedAt:   p.submitted,
		Qty:           qty,
		Reason:        string(p.reason),
	})
	r.result.OpenedPositions++
	r.pendingEntry = nil
}

// reverseInto closes the open position and immediately opens the opposite
// one. A single REVERSE fill records both effects: its price is the open
// leg, while the accompanying TradeClosed carries the close-leg price.
func (r *run) reverseInto(p *pending, base float64, fillTime time.Time) {
	closeSide := r.pos.side.Opposite() // market action that closes
	closePrice := applySlippage(base, closeSide, r.cfg.ExitSlippageBps)
	r.realizeClose(closePrice, fillTime, core.ReasonReverse)

	entryPrice := applySlippage(base, p.side, r.cfg.EntrySlippageBps)
	qty := r.positionSize(entryPrice)
	r.openPosition(p.side, entryPrice, qty, fillTime)
	r.emit(event.Fill{
		At:            fillTime,
		Action:        core.ActionReverse,
		Side:          p.side,
		Price:         entryPrice,
		IntendedPrice: base,
		SlippageBps:   r.cfg.EntrySlippageBps,
		LatencyBars:   p.latency,
		SubmittedAt:   p.submitted,
		Qty:           qty,
		Reason:        string(core.ReasonReverse),
	})
	r.result.OpenedPositions++
}

// executeExit fills a due pending exit.
func (r *run) executeExit(bar int) {
	p := r.pendingExit
	b := r.bars[bar]

	base := p.intended
	fillTime := p.submitted
	if p.latency > 0 {
		base = b.Open
		fillTime = b.Time
	}

	closeSide := r.pos.side.Opposite()
	price := applySlippage(base, closeSide, r.cfg.ExitSlippageBps)
	posSide, qty := r.pos.side, r.pos.qty
	r.realizeClose(price, fillTime, p.reason)
	r.emit(event.Fill{
		At:            fillTime,
		Action:        core.ActionClose,
		Side:          posSide,
		Price:         price,
		IntendedPrice: p.intended,
		SlippageBps:   r.cfg.ExitSlippageBps,
		LatencyBars:   p.latency,
		SubmittedAt:   p.submitted,
		Qty:           qty,
		Reason:        string(p.reason),
	})
	r.pendingExit = nil
}

// closeAtEndOfData force-closes at the final bar's close, immediate fill
// with exit slippage.
func (r *run) closeAtEndOfData(b core.Bar) {
	closeSide := r.pos.side.Opposite()
	price := applySlippage(b.Close, closeSide, r.cfg.ExitSlippageBps)
	posSide, qty := r.pos.side, r.pos.qty
	r.realizeClose(price, b.Time, core.ReasonEndOfData)
	r.emit(event.Fill{
		At:            b.Time,
		Action:        core.ActionClose,
		Side:          posSide,
		Price:         price,
		IntendedPrice: b.Close,
		SlippageBps:   r.cfg.ExitSlippageBps,
		SubmittedAt:   b.Time,
		Qty:           qty,
		Reason:        string(core.ReasonEndOfData),
	})
	r.pendingExit = nil
}

// openPosition installs the new position with its protective levels armed.
func (r *run) openPosition(side core.Side, price, qty float64, at time.Time) {
	pos := &position{side: side, qty: qty, entryPrice: price, entryTime: at, best: price}
	if r.cfg.StopLossPct > 0 {
		d := r.cfg.StopLossPct * price
		if side == core.SideBuy {
			pos.stop = price - d
		} else {
			pos.stop = price + d
		}
	}
	if r.cfg.TakeProfitPct > 0 {
		d := r.cfg.TakeProfitPct * price
		if side == core.SideBuy {
			pos.take = price + d
		} else {
			pos.take = price - d
		}
	}
	r.pos = pos
}

// realizeClose books the PnL, records the trade, and queues its TradeClosed
// event for the post-fill flush.
func (r *run) realizeClose(price float64, at time.Time, reason core.CloseReason) {
	p := r.pos
	pnl := positionPnL(p.side, p.entryPrice, price, p.qty)
	r.equity += pnl
	pnlPct := 0.0
	if r.equity != 0 {
		pnlPct = pnl / r.equity
	}

	r.result.Trades = append(r.result.Trades, Trade{
		EntryTime:  p.entryTime,
		ExitTime:   at,
		Side:       p.side,
		EntryPrice: p.entryPrice,
		ExitPrice:  price,
		Qty:        p.qty,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Reason:     reason,
	})
	r.barTrades = append(r.barTrades, event.TradeClosed{
		At:         at,
		EntryTime:  p.entryTime,
		Side:       p.side,
		EntryPrice: p.entryPrice,
		ExitPrice:  price,
		Qty:        p.qty,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Reason:     reason,
	})
	r.pos = nil
}

// flushTrades emits the bar's queued TradeClosed events after its fills,
// preserving the Bar, Signal, Fill, TradeClosed, Equity order.
func (r *run) flushTrades() {
	for _, tc := range r.barTrades {
		r.emit(tc)
	}
	r.barTrades = r.barTrades[:0]
}

// markEquity emits the bar's single equity snapshot: realized equity plus
// mark-to-market unrealized PnL at the bar close.
func (r *run) markEquity(b core.Bar) {
	eq := r.equity
	if r.pos != nil {
		eq += positionPnL(r.pos.side, r.pos.entryPrice, b.Close, r.pos.qty)
	}
	r.result.Curve = append(r.result.Curve, EquityPoint{Time: b.Time, Equity: eq})
	r.emit(event.Equity{At: b.Time, Equity: eq})
}

// dropStalePending counts and logs delayed fills whose target bar lies
// beyond the data horizon. Dropping them is a documented edge case, not an
// error.
func (r *run) dropStalePending(lastBar int) {
	for _, p := range []*pending{r.pendingEntry, r.pendingExit} {
		if p == nil {
			continue
		}
		r.result.DroppedFills++
		r.log.Warn("dropping delayed fill beyond data horizon",
			zap.Int("submit_bar", p.submitBar),
			zap.Int("latency_bars", p.latency),
			zap.Int("last_bar", lastBar),
			zap.String("reason", string(p.reason)),
		)
	}
	r.pendingEntry, r.pendingExit = nil, nil
}

func (r *run) positionSize(price float64) float64 {
	if r.cfg.SizePolicy == SizeRisk && r.cfg.StopLossPct > 0 {
		return r.equity * r.cfg.RiskPerTrade / (r.cfg.StopLossPct * price)
	}
	return r.equity / price
}

func (r *run) emit(ev event.Event) {
	r.events = append(r.events, ev)
}

// applySlippage adjusts a fill adverse to the market action: buys pay more,
// sells receive less.
func applySlippage(price float64, action core.Side, bps float64) float64 {
	if bps <= 0 {
		return price
	}
	s := bps / 10_000
	if action == core.SideBuy {
		return price * (1 + s)
	}
	return price * (1 - s)
}

func positionPnL(side core.Side, entry, exit, qty float64) float64 {
	if side == core.SideBuy {
		return (exit - entry) * qty
	}
	return (entry - exit) * qty
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
