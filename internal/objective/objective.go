// Package objective turns backtest metrics into a single scalar score for
// optimizers to rank. Every objective is normalized higher-is-better;
// metrics that are naturally minimized (drawdown) are negated at scoring
// time so the optimizer never needs a direction flag.
package objective

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/newthinker/rewind/internal/backtest"
	"github.com/newthinker/rewind/internal/core"
)

// Func scores one backtest's metrics. Higher is better.
type Func func(m backtest.Metrics) float64

// Objective is a named, documented scoring function.
type Objective struct {
	Key         string
	Description string
	Score       Func
}

// profitFactorCap bounds the +Inf no-loss sentinel so a lucky two-trade run
// cannot dominate a ranking.
const profitFactorCap = 1000

// Evaluate applies the objective with the zero-trade guard: a run that never
// traded scores -Inf so it sorts below every run that did.
func (o Objective) Evaluate(m backtest.Metrics) float64 {
	if m.TotalTrades == 0 {
		return math.Inf(-1)
	}
	return o.Score(m)
}

// Registry is a concurrency-safe name-to-objective map.
type Registry struct {
	mu         sync.RWMutex
	objectives map[string]Objective
}

// NewRegistry returns a registry preloaded with the builtin objectives.
func NewRegistry() *Registry {
	r := &Registry{objectives: make(map[string]Objective)}
	for _, o := range Builtins() {
		r.Register(o)
	}
	return r
}

// Register adds or replaces an objective.
func (r *Registry) Register(o Objective) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objectives[o.Key] = o
}

// Get retrieves an objective by key.
func (r *Registry) Get(key string) (Objective, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objectives[key]
	if !ok {
		return Objective{}, core.WrapError(core.ErrObjectiveNotFound,
			fmt.Errorf("objective %q is not registered", key))
	}
	return o, nil
}

// Keys returns the registered objective keys, sorted for stable listings.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.objectives))
	for k := range r.objectives {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Builtins returns the standard objective set.
func Builtins() []Objective {
	return []Objective{
		{
			Key:         "net_pct",
			Description: "net return over the run",
			Score:       func(m backtest.Metrics) float64 { return m.NetPct },
		},
		{
			Key:         "max_drawdown_pct",
			Description: "negated max drawdown, shallower is better",
			Score:       func(m backtest.Metrics) float64 { return -m.MaxDrawdownPct },
		},
		{
			Key:         "profit_factor",
			Description: "gross profit over gross loss, capped",
			Score: func(m backtest.Metrics) float64 {
				if m.ProfitFactor > profitFactorCap {
					return profitFactorCap
				}
				return m.ProfitFactor
			},
		},
		{
			Key:         "win_rate",
			Description: "fraction of winning trades",
			Score:       func(m backtest.Metrics) float64 { return m.WinRate },
		},
		{
			Key:         "score_balanced",
			Description: "net return penalized by half the max drawdown",
			Score: func(m backtest.Metrics) float64 {
				return m.NetPct - 0.5*m.MaxDrawdownPct
			},
		},
	}
}
