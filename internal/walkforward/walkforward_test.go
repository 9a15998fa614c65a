package walkforward

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/newthinker/rewind/internal/backtest"
	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/objective"
	"github.com/newthinker/rewind/internal/optimize"
	"github.com/newthinker/rewind/internal/param"
	"github.com/newthinker/rewind/internal/strategy"
)

const day = 24 * time.Hour

// entryBarStrategy buys at bar index n of whatever slice it is given; on a
// rising series the sweep always picks n=1.
type entryBarStrategy struct{}

func (*entryBarStrategy) Key() string         { return "entry_bar" }
func (*entryBarStrategy) Name() string        { return "Entry Bar" }
func (*entryBarStrategy) Description() string { return "buys at a parameterized bar index" }

func (*entryBarStrategy) Params() []param.Spec {
	return []param.Spec{
		{Key: "n", Kind: param.KindInt, Default: 1, Min: param.F(1), Max: param.F(1000), Step: param.F(1)},
	}
}

func (*entryBarStrategy) Run(bars []core.Bar, params map[string]any) ([]core.Signal, error) {
	n := strategy.Int(params, "n")
	if n >= len(bars) {
		return nil, fmt.Errorf("entry bar %d beyond series of %d", n, len(bars))
	}
	return []core.Signal{{Time: bars[n].Time, Side: core.SideBuy, Price: bars[n].Close, Source: "entry_bar"}}, nil
}

func risingBars(n int) []core.Bar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, n)
	for i := range bars {
		px := 100 + float64(i)
		bars[i] = core.Bar{Time: start.AddDate(0, 0, i), Open: px, High: px, Low: px, Close: px}
	}
	return bars
}

func testHarness() *Harness {
	cfg := backtest.DefaultConfig()
	cfg.SizePolicy = backtest.SizeFull
	cfg.StopLossPct = 0
	cfg.TakeProfitPct = 0

	strategies := strategy.NewRegistry()
	strategies.Register(&entryBarStrategy{})

	return &Harness{
		Config: Config{
			TrainSpan:    10 * day,
			TestSpan:     5 * day,
			Step:         5 * day,
			MinTrainBars: 5,
			MinTestBars:  3,
		},
		Optimizer: &optimize.Optimizer{
			Engine:     cfg,
			Strategies: strategies,
			Objectives: objective.NewRegistry(),
		},
		Request: optimize.Request{
			Strategy:  "entry_bar",
			Objective: "net_pct",
			Domains:   map[string][]any{"n": {1, 2}},
			Mode:      optimize.ModeGrid,
		},
	}
}

func TestRun_RollingWindows(t *testing.T) {
	h := testHarness()
	res, err := h.Run(context.Background(), risingBars(30))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Windows) != 3 {
		t.Fatalf("windows = %d, want 3", len(res.Windows))
	}
	for i, w := range res.Windows {
		if w.Err != "" {
			t.Fatalf("window %d failed: %s", i, w.Err)
		}
		if w.BestParams["n"] != 1 {
			t.Errorf("window %d best n = %v, want 1", i, w.BestParams["n"])
		}
		if !w.TrainEnd.Equal(w.TrainStart.Add(h.Config.TrainSpan)) {
			t.Errorf("window %d train span mismatch", i)
		}
		if !w.TestEnd.Equal(w.TrainEnd.Add(h.Config.TestSpan)) {
			t.Errorf("window %d test span mismatch", i)
		}
	}
	// consecutive windows step forward by the configured step
	if got := res.Windows[1].TrainStart.Sub(res.Windows[0].TrainStart); got != h.Config.Step {
		t.Errorf("window step = %v, want %v", got, h.Config.Step)
	}
}

func TestRun_DriftAndDecay(t *testing.T) {
	h := testHarness()
	res, err := h.Run(context.Background(), risingBars(30))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i, w := range res.Windows {
		if w.ParamDrift == nil {
			t.Fatalf("window %d drift missing", i)
		}
		// the first window has no predecessor and records 0; later
		// windows all re-pick n=1, so they drift 0 too
		if *w.ParamDrift != 0 {
			t.Errorf("window %d drift = %v, want 0", i, *w.ParamDrift)
		}
	}
	for i, w := range res.Windows {
		if w.PerformanceDecay == nil {
			t.Fatalf("window %d decay missing despite nonzero train score", i)
		}
		want := w.TestScore / w.TrainScore
		if got := *w.PerformanceDecay; got != want {
			t.Errorf("window %d decay = %v, want test/train = %v", i, got, want)
		}
		if *w.PerformanceDecay <= 0 {
			t.Errorf("window %d decay = %v, want > 0 when both windows profit", i, *w.PerformanceDecay)
		}
	}
}

func TestRun_OOSCurveStitched(t *testing.T) {
	h := testHarness()
	res, err := h.Run(context.Background(), risingBars(30))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// three 5-day test windows
	if len(res.OOSCurve) != 15 {
		t.Fatalf("oos points = %d, want 15", len(res.OOSCurve))
	}
	for i := 1; i < len(res.OOSCurve); i++ {
		if !res.OOSCurve[i].Time.After(res.OOSCurve[i-1].Time) {
			t.Fatalf("oos curve not strictly ordered at %d", i)
		}
	}
	// each point carries the index of the window that produced it
	for i, p := range res.OOSCurve {
		if want := i / 5; p.Window != want {
			t.Errorf("oos point %d window = %d, want %d", i, p.Window, want)
		}
	}
	// every test window is profitable on a rising series, so the stitched
	// account compounds upward
	if res.OOSMetrics.NetPct <= 0 {
		t.Errorf("oos net = %v, want > 0", res.OOSMetrics.NetPct)
	}
	if res.OOSMetrics.TotalTrades != 3 {
		t.Errorf("oos trades = %d, want 3", res.OOSMetrics.TotalTrades)
	}
}

func TestRun_TrainTestSeparation(t *testing.T) {
	h := testHarness()
	res, err := h.Run(context.Background(), risingBars(30))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// the single trade each test window produces must enter at or after
	// that window's training cutoff
	for i, w := range res.Windows {
		if w.TestMetrics.TotalTrades != 1 {
			t.Fatalf("window %d test trades = %d, want 1", i, w.TestMetrics.TotalTrades)
		}
		if w.TrainEnd.Before(w.TrainStart) || w.TestEnd.Before(w.TrainEnd) {
			t.Fatalf("window %d boundaries out of order: %+v", i, w)
		}
	}
	// every stitched point falls inside its own window's test range
	for i, p := range res.OOSCurve {
		w := res.Windows[p.Window]
		if p.Time.Before(w.TrainEnd) || !p.Time.Before(w.TestEnd) {
			t.Fatalf("oos point %d at %v outside window %d test range [%v, %v)",
				i, p.Time, p.Window, w.TrainEnd, w.TestEnd)
		}
	}
}

func TestRun_TooShortSeries(t *testing.T) {
	h := testHarness()
	if _, err := h.Run(context.Background(), risingBars(5)); !errors.Is(err, core.ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := cfg
	bad.Step = 0
	if err := bad.Validate(); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("err = %v, want ErrConfigInvalid", err)
	}
	bad = cfg
	bad.TrainSpan = -day
	if err := bad.Validate(); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestParamDrift(t *testing.T) {
	schema := []param.Spec{
		{Key: "window", Kind: param.KindInt, Min: param.F(0), Max: param.F(100), Step: param.F(5)},
		{Key: "mode", Kind: param.KindString},
	}

	if got := ParamDrift(
		map[string]any{"window": 20, "mode": "close"},
		map[string]any{"window": 20, "mode": "close"},
		schema,
	); got != 0 {
		t.Errorf("identical params drift = %v, want 0", got)
	}

	// window moves 50 over a 100 span, mode flips: (0.5 + 1) / 2
	if got := ParamDrift(
		map[string]any{"window": 20, "mode": "close"},
		map[string]any{"window": 70, "mode": "open"},
		schema,
	); got != 0.75 {
		t.Errorf("drift = %v, want 0.75", got)
	}

	// unbounded numeric normalizes by the larger magnitude
	if got := ParamDrift(map[string]any{"x": 5.0}, map[string]any{"x": 10.0}, nil); got != 0.5 {
		t.Errorf("unbounded drift = %v, want 0.5", got)
	}

	// a key present on one side only counts as a full unit
	if got := ParamDrift(map[string]any{"a": 1}, map[string]any{}, nil); got != 1 {
		t.Errorf("missing key drift = %v, want 1", got)
	}
}
