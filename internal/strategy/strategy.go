// Package strategy defines the signal-generation interface and the registry
// optimizers resolve strategies from. A strategy is a pure function of the
// bar series and its parameter map; all execution concerns (sizing, stops,
// latency) belong to the engine.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/param"
)

// Strategy generates signals from a bar series. Run must be deterministic
// and side-effect free so sweep evaluations can share one instance across
// goroutines.
type Strategy interface {
	Key() string
	Name() string
	Description() string
	Params() []param.Spec
	Run(bars []core.Bar, params map[string]any) ([]core.Signal, error)
}

// Registry manages named strategies.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the registry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[s.Key()]; exists {
		r.logger.Warn("replacing registered strategy", zap.String("strategy", s.Key()))
	}
	r.strategies[s.Key()] = s
}

// Get retrieves a strategy by key.
func (r *Registry) Get(key string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[key]
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound,
			fmt.Errorf("strategy %q is not registered", key))
	}
	return s, nil
}

// Keys returns the registered strategy keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns all registered strategies, ordered by key.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]Strategy, 0, len(keys))
	for _, k := range keys {
		result = append(result, r.strategies[k])
	}
	return result
}

// Generate resolves the strategy, merges overrides against its declared
// schema, and runs it over validated bars.
func (r *Registry) Generate(key string, bars []core.Bar, overrides map[string]any) ([]core.Signal, error) {
	s, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	params, err := param.Merge(overrides, s.Params())
	if err != nil {
		return nil, err
	}
	return s.Run(bars, params)
}

// Int reads an int parameter from a merged parameter map. Merge guarantees
// the kinds, so a missing or mistyped key is a programming error.
func Int(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		panic(fmt.Sprintf("parameter %q is %T, want int", key, params[key]))
	}
}

// Float reads a float parameter from a merged parameter map.
func Float(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		panic(fmt.Sprintf("parameter %q is %T, want float", key, params[key]))
	}
}

// Bool reads a bool parameter from a merged parameter map.
func Bool(params map[string]any, key string) bool {
	v, ok := params[key].(bool)
	if !ok {
		panic(fmt.Sprintf("parameter %q is %T, want bool", key, params[key]))
	}
	return v
}

// String reads a string parameter from a merged parameter map.
func String(params map[string]any, key string) string {
	v, ok := params[key].(string)
	if !ok {
		panic(fmt.Sprintf("parameter %q is %T, want string", key, params[key]))
	}
	return v
}

// Closes extracts the close series from bars.
func Closes(bars []core.Bar) []float64 {
	prices := make([]float64, len(bars))
	for i, b := range bars {
		prices[i] = b.Close
	}
	return prices
}
