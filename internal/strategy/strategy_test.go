package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/param"
)

type stubStrategy struct {
	gotParams map[string]any
}

func (*stubStrategy) Key() string         { return "stub" }
func (*stubStrategy) Name() string        { return "Stub" }
func (*stubStrategy) Description() string { return "records the params it ran with" }

func (*stubStrategy) Params() []param.Spec {
	return []param.Spec{
		{Key: "window", Kind: param.KindInt, Default: 20, Min: param.F(5), Max: param.F(100), Step: param.F(5)},
	}
}

func (s *stubStrategy) Run(bars []core.Bar, params map[string]any) ([]core.Signal, error) {
	s.gotParams = params
	return []core.Signal{{Time: bars[0].Time, Side: core.SideBuy, Price: bars[0].Close, Source: s.Key()}}, nil
}

func testBars(n int) []core.Bar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, n)
	for i := range bars {
		px := 100 + float64(i)
		bars[i] = core.Bar{Time: start.AddDate(0, 0, i), Open: px, High: px, Low: px, Close: px}
	}
	return bars
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("err = %v, want ErrStrategyNotFound", err)
	}
}

func TestRegistry_RegisterAndKeys(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{})

	s, err := r.Get("stub")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.Name() != "Stub" {
		t.Errorf("Name() = %s", s.Name())
	}
	if keys := r.Keys(); len(keys) != 1 || keys[0] != "stub" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestGenerate_MergesDefaults(t *testing.T) {
	r := NewRegistry()
	stub := &stubStrategy{}
	r.Register(stub)

	signals, err := r.Generate("stub", testBars(3), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(signals) != 1 || signals[0].Source != "stub" {
		t.Errorf("signals = %v", signals)
	}
	if stub.gotParams["window"] != 20 {
		t.Errorf("default not merged, params = %v", stub.gotParams)
	}
}

func TestGenerate_RejectsBadOverride(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{})

	if _, err := r.Generate("stub", testBars(3), map[string]any{"lookback": 5}); !errors.Is(err, core.ErrParamUnknown) {
		t.Errorf("err = %v, want ErrParamUnknown", err)
	}
	if _, err := r.Generate("stub", testBars(3), map[string]any{"window": 2}); !errors.Is(err, core.ErrParamOutOfRange) {
		t.Errorf("err = %v, want ErrParamOutOfRange", err)
	}
}

func TestGenerate_RejectsEmptyBars(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{})
	if _, err := r.Generate("stub", nil, nil); !errors.Is(err, core.ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestParamAccessors(t *testing.T) {
	params := map[string]any{"n": 3, "f": 1.5, "b": true, "s": "x"}

	if Int(params, "n") != 3 || Float(params, "f") != 1.5 || !Bool(params, "b") || String(params, "s") != "x" {
		t.Errorf("accessors misread %v", params)
	}
	if Float(params, "n") != 3.0 {
		t.Error("Float should widen int values")
	}
}
