// Package optimize searches a strategy's parameter space by running one
// backtest per combination and ranking the results with an objective. Both
// the grid walk and the seeded random search are deterministic: the same
// inputs and seed always produce the same ranked report.
package optimize

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/rewind/internal/backtest"
	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/logger"
	"github.com/newthinker/rewind/internal/metrics"
	"github.com/newthinker/rewind/internal/objective"
	"github.com/newthinker/rewind/internal/strategy"
)

// Mode selects how the parameter space is traversed.
type Mode string

const (
	ModeGrid   Mode = "grid"
	ModeRandom Mode = "random"
)

// Request describes one sweep.
type Request struct {
	Strategy  string
	Objective string
	Domains   map[string][]any

	Mode    Mode
	Samples int   // random mode draw count
	Seed    int64 // random mode source

	Workers int // 0 means GOMAXPROCS

	// MaxGridSize fails the sweep before any evaluation when the full
	// grid exceeds it. 0 disables the guard.
	MaxGridSize int
	// MaxEvals truncates the enumerated combinations; the sweep then
	// evaluates exactly min(MaxEvals, grid size). 0 disables.
	MaxEvals int
}

func (r Request) validate() error {
	switch r.Mode {
	case ModeGrid, ModeRandom:
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown sweep mode %q", r.Mode))
	}
	if r.Mode == ModeRandom && r.Samples <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("random mode needs a positive sample count, got %d", r.Samples))
	}
	return checkDomains(r.Domains)
}

// Evaluation is one scored parameter combination. A failed evaluation keeps
// its row with the worst possible score so ranks stay aligned with the
// enumeration.
type Evaluation struct {
	Index   int              `json:"index"`
	Params  map[string]any   `json:"params"`
	Metrics backtest.Metrics `json:"metrics"`
	Score   float64          `json:"score"`
	Err     string           `json:"error,omitempty"`
}

// evaluationJSON carries Score as a pointer: a failed or zero-trade row
// scores -Inf, which encoding/json cannot represent, so it becomes null.
type evaluationJSON struct {
	Index   int              `json:"index"`
	Params  map[string]any   `json:"params"`
	Metrics backtest.Metrics `json:"metrics"`
	Score   *float64         `json:"score"`
	Err     string           `json:"error,omitempty"`
}

func (e Evaluation) MarshalJSON() ([]byte, error) {
	out := evaluationJSON{Index: e.Index, Params: e.Params, Metrics: e.Metrics, Err: e.Err}
	if !math.IsInf(e.Score, 0) && !math.IsNaN(e.Score) {
		out.Score = &e.Score
	}
	return json.Marshal(out)
}

func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var in evaluationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Evaluation{Index: in.Index, Params: in.Params, Metrics: in.Metrics, Score: math.Inf(-1), Err: in.Err}
	if in.Score != nil {
		e.Score = *in.Score
	}
	return nil
}

// Report is the ranked outcome of one sweep.
type Report struct {
	ID        string        `json:"id"`
	Strategy  string        `json:"strategy"`
	Objective string        `json:"objective"`
	Mode      Mode          `json:"mode"`
	GridSize  int           `json:"grid_size"`
	Evaluated int           `json:"evaluated"`
	Rows      []Evaluation  `json:"rows"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Best returns the top-ranked evaluation.
func (r *Report) Best() (Evaluation, bool) {
	if len(r.Rows) == 0 {
		return Evaluation{}, false
	}
	return r.Rows[0], true
}

// Optimizer wires the engine, strategies, and objectives together.
// Metrics may be nil.
type Optimizer struct {
	Engine     backtest.Config
	Strategies *strategy.Registry
	Objectives *objective.Registry
	Metrics    *metrics.Registry
	Logger     *zap.Logger
}

// Sweep enumerates the parameter space and evaluates it on a bounded worker
// pool. Results are written by evaluation index, so worker scheduling never
// affects the report.
func (o *Optimizer) Sweep(ctx context.Context, req Request, bars []core.Bar) (*Report, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	obj, err := o.Objectives.Get(req.Objective)
	if err != nil {
		return nil, err
	}
	if _, err := o.Strategies.Get(req.Strategy); err != nil {
		return nil, err
	}

	gridSize := GridSize(req.Domains)
	if req.Mode == ModeGrid && req.MaxGridSize > 0 && gridSize > req.MaxGridSize {
		return nil, core.WrapError(core.ErrGridExplosion,
			fmt.Errorf("grid size %d exceeds limit %d", gridSize, req.MaxGridSize))
	}

	var combos []map[string]any
	if req.Mode == ModeGrid {
		combos = enumerate(req.Domains)
	} else {
		combos = sample(req.Domains, req.Samples, req.Seed)
	}
	if req.MaxEvals > 0 && len(combos) > req.MaxEvals {
		combos = combos[:req.MaxEvals]
	}

	start := time.Now()
	sweepID := uuid.NewString()
	log = logger.ForRun(log, sweepID)
	log.Info("starting sweep",
		zap.String("strategy", req.Strategy),
		zap.String("objective", req.Objective),
		zap.String("mode", string(req.Mode)),
		zap.Int("grid_size", gridSize),
		zap.Int("evaluations", len(combos)),
	)

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	rows := make([]Evaluation, len(combos))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rows[i] = o.evaluate(i, combos[i], bars, obj, req.Strategy, log)
			}
		}()
	}

	var ctxErr error
dispatch:
	for i := range combos {
		select {
		case jobs <- i:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	if ctxErr != nil {
		return nil, ctxErr
	}

	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Score > rows[b].Score })

	elapsed := time.Since(start)
	if o.Metrics != nil {
		o.Metrics.RecordSweep(elapsed.Seconds())
	}
	log.Info("sweep finished",
		zap.Int("evaluated", len(rows)),
		zap.Duration("elapsed", elapsed),
	)

	return &Report{
		ID:        sweepID,
		Strategy:  req.Strategy,
		Objective: req.Objective,
		Mode:      req.Mode,
		GridSize:  gridSize,
		Evaluated: len(rows),
		Rows:      rows,
		Elapsed:   elapsed,
	}, nil
}

// evaluate runs one combination. A panic or error is contained to its row:
// the row scores -Inf and carries the message, the sweep continues.
func (o *Optimizer) evaluate(index int, params map[string]any, bars []core.Bar, obj objective.Objective, strategyKey string, log *zap.Logger) (ev Evaluation) {
	if o.Metrics != nil {
		o.Metrics.EvaluationStarted()
		defer o.Metrics.EvaluationFinished()
	}

	ev = Evaluation{Index: index, Params: params, Score: math.Inf(-1)}
	defer func() {
		if r := recover(); r != nil {
			ev.Err = fmt.Sprintf("panic: %v", r)
			ev.Score = math.Inf(-1)
			log.Error("evaluation panicked", zap.Int("index", index), zap.Any("panic", r))
			if o.Metrics != nil {
				o.Metrics.RecordEvaluation("panic")
			}
		}
	}()

	started := time.Now()
	res, err := o.runOne(params, bars, strategyKey)
	if err != nil {
		ev.Err = err.Error()
		log.Warn("evaluation failed", zap.Int("index", index), zap.Error(err))
		if o.Metrics != nil {
			o.Metrics.RecordEvaluation("error")
			o.Metrics.RecordBacktest("error", time.Since(started).Seconds())
		}
		return ev
	}

	ev.Metrics = backtest.ComputeMetrics(res, o.Engine.InitialEquity)
	ev.Score = obj.Evaluate(ev.Metrics)
	if o.Metrics != nil {
		o.Metrics.RecordEvaluation("ok")
		o.Metrics.RecordBacktest("ok", time.Since(started).Seconds())
		o.Metrics.RecordDroppedFills(res.DroppedFills)
	}
	return ev
}

func (o *Optimizer) runOne(params map[string]any, bars []core.Bar, strategyKey string) (*backtest.Result, error) {
	signals, err := o.Strategies.Generate(strategyKey, bars, params)
	if err != nil {
		return nil, err
	}
	engine, err := backtest.New(o.Engine, o.Logger)
	if err != nil {
		return nil, err
	}
	return engine.Run(bars, signals)
}
