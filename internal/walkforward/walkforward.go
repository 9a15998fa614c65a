// Package walkforward runs rolling train/test analysis: optimize on a
// training window, evaluate the chosen parameters out-of-sample on the test
// window that follows, then step both windows forward. The stitched
// out-of-sample curve and the per-window drift/decay diagnostics show
// whether an optimized strategy survives data it was not fitted to.
package walkforward

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/rewind/internal/backtest"
	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/metrics"
	"github.com/newthinker/rewind/internal/optimize"
	"github.com/newthinker/rewind/internal/param"
)

// Config shapes the rolling windows. Spans are wall-clock durations mapped
// onto bar times, so the same config works for any bar interval.
type Config struct {
	TrainSpan time.Duration `mapstructure:"train_span"`
	TestSpan  time.Duration `mapstructure:"test_span"`
	Step      time.Duration `mapstructure:"step"`

	// MinTrainBars/MinTestBars skip windows whose slices came out too
	// thin to be meaningful, with a warning.
	MinTrainBars int `mapstructure:"min_train_bars"`
	MinTestBars  int `mapstructure:"min_test_bars"`
}

// DefaultConfig uses half-year training, one-quarter testing, stepped a
// quarter at a time.
func DefaultConfig() Config {
	const day = 24 * time.Hour
	return Config{
		TrainSpan:    180 * day,
		TestSpan:     90 * day,
		Step:         90 * day,
		MinTrainBars: 30,
		MinTestBars:  5,
	}
}

// Validate rejects degenerate window shapes.
func (c Config) Validate() error {
	if c.TrainSpan <= 0 || c.TestSpan <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("train and test spans must be positive (train %v, test %v)", c.TrainSpan, c.TestSpan))
	}
	if c.Step <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("step must be positive, got %v", c.Step))
	}
	return nil
}

// Window is one train/test round.
type Window struct {
	Index      int       `json:"index"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"` // exclusive; test starts here
	TestEnd    time.Time `json:"test_end"`  // exclusive

	BestParams map[string]any `json:"best_params"`

	TrainScore   float64          `json:"train_score"`
	TestScore    float64          `json:"test_score"`
	TrainMetrics backtest.Metrics `json:"train_metrics"`
	TestMetrics  backtest.Metrics `json:"test_metrics"`

	// ParamDrift is the normalized distance from the previous window's
	// best parameters; 0 on the first window, nil only when the window
	// failed before a best was chosen.
	ParamDrift *float64 `json:"param_drift,omitempty"`
	// PerformanceDecay is test score / train score; nil when the ratio
	// is undefined (zero or non-finite train score, non-finite test).
	PerformanceDecay *float64 `json:"performance_decay,omitempty"`

	Err string `json:"error,omitempty"`
}

// windowJSON carries the scores as pointers: a zero-trade window scores
// -Inf, which encoding/json cannot represent, so it becomes null.
type windowJSON struct {
	Index      int       `json:"index"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestEnd    time.Time `json:"test_end"`

	BestParams map[string]any `json:"best_params"`

	TrainScore   *float64         `json:"train_score"`
	TestScore    *float64         `json:"test_score"`
	TrainMetrics backtest.Metrics `json:"train_metrics"`
	TestMetrics  backtest.Metrics `json:"test_metrics"`

	ParamDrift       *float64 `json:"param_drift,omitempty"`
	PerformanceDecay *float64 `json:"performance_decay,omitempty"`

	Err string `json:"error,omitempty"`
}

func (w Window) MarshalJSON() ([]byte, error) {
	out := windowJSON{
		Index:            w.Index,
		TrainStart:       w.TrainStart,
		TrainEnd:         w.TrainEnd,
		TestEnd:          w.TestEnd,
		BestParams:       w.BestParams,
		TrainMetrics:     w.TrainMetrics,
		TestMetrics:      w.TestMetrics,
		ParamDrift:       w.ParamDrift,
		PerformanceDecay: w.PerformanceDecay,
		Err:              w.Err,
	}
	out.TrainScore = finiteOrNil(w.TrainScore)
	out.TestScore = finiteOrNil(w.TestScore)
	return json.Marshal(out)
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// OOSPoint is one sample of the stitched out-of-sample curve, tagged with
// the window that produced it.
type OOSPoint struct {
	Window int       `json:"window"`
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Result is the full analysis outcome.
type Result struct {
	Windows []Window `json:"windows"`

	// OOSCurve stitches every test window's equity multiplicatively, so
	// it reads as one continuous out-of-sample account.
	OOSCurve   []OOSPoint       `json:"oos_curve"`
	OOSMetrics backtest.Metrics `json:"oos_metrics"`
}

// Harness drives the analysis. Metrics may be nil.
type Harness struct {
	Config    Config
	Optimizer *optimize.Optimizer
	Request   optimize.Request // sweep settings reused per training window
	Metrics   *metrics.Registry
	Logger    *zap.Logger
}

// Run walks the windows over the bar series. Training data never overlaps
// test data; test signals are generated from test bars alone.
func (h *Harness) Run(ctx context.Context, bars []core.Bar) (*Result, error) {
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := h.Config.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}

	strat, err := h.Optimizer.Strategies.Get(h.Request.Strategy)
	if err != nil {
		return nil, err
	}
	schema := strat.Params()

	res := &Result{}
	var (
		oosTrades []backtest.Trade
		prevBest  map[string]any
		prevFinal = h.Optimizer.Engine.InitialEquity
	)

	end := bars[len(bars)-1].Time
	index := 0
	for trainStart := bars[0].Time; !trainStart.Add(h.Config.TrainSpan + h.Config.TestSpan).After(end.Add(time.Nanosecond)); trainStart = trainStart.Add(h.Config.Step) {
		trainEnd := trainStart.Add(h.Config.TrainSpan)
		testEnd := trainEnd.Add(h.Config.TestSpan)

		train := sliceByTime(bars, trainStart, trainEnd)
		test := sliceByTime(bars, trainEnd, testEnd)
		if len(train) < h.Config.MinTrainBars || len(test) < h.Config.MinTestBars {
			log.Warn("skipping thin window",
				zap.Int("index", index),
				zap.Int("train_bars", len(train)),
				zap.Int("test_bars", len(test)),
			)
			continue
		}

		w, testRes := h.runWindow(ctx, index, train, test, trainStart, trainEnd, testEnd, schema, prevBest)
		if w.Err == "" {
			prevBest = w.BestParams
		}
		res.Windows = append(res.Windows, w)
		if h.Metrics != nil {
			h.Metrics.RecordWindow()
		}

		if testRes != nil {
			prevFinal = stitchOOS(res, w.Index, testRes, prevFinal, h.Optimizer.Engine.InitialEquity, &oosTrades)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index++
	}

	if len(res.Windows) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("series of %d bars yields no complete train/test window", len(bars)))
	}

	curve := make([]backtest.EquityPoint, len(res.OOSCurve))
	for i, p := range res.OOSCurve {
		curve[i] = backtest.EquityPoint{Time: p.Time, Equity: p.Equity}
	}
	res.OOSMetrics = backtest.ComputeMetrics(&backtest.Result{
		Trades: oosTrades,
		Curve:  curve,
	}, h.Optimizer.Engine.InitialEquity)
	return res, nil
}

func (h *Harness) runWindow(ctx context.Context, index int, train, test []core.Bar, trainStart, trainEnd, testEnd time.Time, schema []param.Spec, prevBest map[string]any) (Window, *backtest.Result) {
	w := Window{Index: index, TrainStart: trainStart, TrainEnd: trainEnd, TestEnd: testEnd}

	report, err := h.Optimizer.Sweep(ctx, h.Request, train)
	if err != nil {
		w.Err = err.Error()
		return w, nil
	}
	best, ok := report.Best()
	if !ok || best.Err != "" {
		w.Err = fmt.Sprintf("no usable training evaluation: %s", best.Err)
		return w, nil
	}
	w.BestParams = best.Params
	w.TrainScore = best.Score
	w.TrainMetrics = best.Metrics

	testEval := h.evaluateOOS(test, best.Params)
	if testEval.Err != "" {
		w.Err = testEval.Err
		return w, nil
	}
	w.TestScore = testEval.Score
	w.TestMetrics = testEval.Metrics

	drift := 0.0
	if prevBest != nil {
		drift = ParamDrift(prevBest, best.Params, schema)
	}
	w.ParamDrift = &drift
	if w.TrainScore != 0 && !math.IsInf(w.TrainScore, 0) && !math.IsInf(w.TestScore, 0) {
		decay := w.TestScore / w.TrainScore
		w.PerformanceDecay = &decay
	}
	return w, testEval.Result
}

type oosEval struct {
	Score   float64
	Metrics backtest.Metrics
	Result  *backtest.Result
	Err     string
}

func (h *Harness) evaluateOOS(test []core.Bar, params map[string]any) oosEval {
	signals, err := h.Optimizer.Strategies.Generate(h.Request.Strategy, test, params)
	if err != nil {
		return oosEval{Err: err.Error()}
	}
	engine, err := backtest.New(h.Optimizer.Engine, h.Logger)
	if err != nil {
		return oosEval{Err: err.Error()}
	}
	res, err := engine.Run(test, signals)
	if err != nil {
		return oosEval{Err: err.Error()}
	}

	m := backtest.ComputeMetrics(res, h.Optimizer.Engine.InitialEquity)
	obj, err := h.Optimizer.Objectives.Get(h.Request.Objective)
	if err != nil {
		return oosEval{Err: err.Error()}
	}
	return oosEval{Score: obj.Evaluate(m), Metrics: m, Result: res}
}

// stitchOOS appends the window's test curve, rebased so each window starts
// where the previous one ended. Returns the new running final equity.
func stitchOOS(res *Result, window int, testRes *backtest.Result, prevFinal, initialEquity float64, trades *[]backtest.Trade) float64 {
	scale := prevFinal / initialEquity
	for _, p := range testRes.Curve {
		res.OOSCurve = append(res.OOSCurve, OOSPoint{Window: window, Time: p.Time, Equity: p.Equity * scale})
	}
	*trades = append(*trades, testRes.Trades...)
	if len(res.OOSCurve) > 0 {
		return res.OOSCurve[len(res.OOSCurve)-1].Equity
	}
	return prevFinal
}

// ParamDrift measures how far two parameter sets sit apart, averaged over
// the union of their keys. Numeric distances are normalized by the declared
// min/max span when the schema bounds the key, otherwise by the larger
// magnitude; bool and string values contribute 0 or 1.
func ParamDrift(a, b map[string]any, schema []param.Spec) float64 {
	specs := make(map[string]param.Spec, len(schema))
	for _, s := range schema {
		specs[s.Key] = s
	}

	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 0
	}

	var total float64
	for k := range keys {
		va, okA := a[k]
		vb, okB := b[k]
		if !okA || !okB {
			total++
			continue
		}
		total += valueDistance(va, vb, specs[k])
	}
	return total / float64(len(keys))
}

func valueDistance(a, b any, spec param.Spec) float64 {
	fa, aNum := asFloat(a)
	fb, bNum := asFloat(b)
	if aNum && bNum {
		diff := math.Abs(fa - fb)
		if diff == 0 {
			return 0
		}
		if spec.Bounded() && *spec.Max > *spec.Min {
			d := diff / (*spec.Max - *spec.Min)
			if d > 1 {
				d = 1
			}
			return d
		}
		return diff / math.Max(math.Max(math.Abs(fa), math.Abs(fb)), 1)
	}
	if a == b {
		return 0
	}
	return 1
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// sliceByTime returns bars with time in [from, to).
func sliceByTime(bars []core.Bar, from, to time.Time) []core.Bar {
	var out []core.Bar
	for _, b := range bars {
		if b.Time.Before(from) {
			continue
		}
		if !b.Time.Before(to) {
			break
		}
		out = append(out, b)
	}
	return out
}
