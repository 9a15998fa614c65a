package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_RecordBacktest(t *testing.T) {
	r := NewRegistry()

	r.RecordBacktest("ok", 0.5)
	r.RecordBacktest("ok", 1.5)
	r.RecordBacktest("error", 0.1)

	if got := testutil.CollectAndCount(r.backtestsTotal); got != 2 {
		t.Errorf("backtest status series = %d, want 2", got)
	}
}

func TestRegistry_EvaluationGauge(t *testing.T) {
	r := NewRegistry()

	r.EvaluationStarted()
	r.EvaluationStarted()
	if got := testutil.ToFloat64(r.evaluationsActive); got != 2 {
		t.Errorf("active = %v, want 2", got)
	}
	r.EvaluationFinished()
	if got := testutil.ToFloat64(r.evaluationsActive); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}
}

func TestRegistry_DroppedFills(t *testing.T) {
	r := NewRegistry()
	r.RecordDroppedFills(3)
	r.RecordDroppedFills(1)
	if got := testutil.ToFloat64(r.droppedFills); got != 4 {
		t.Errorf("dropped fills = %v, want 4", got)
	}
}

func TestRegistry_GathersCleanly(t *testing.T) {
	r := NewRegistry()
	r.RecordSweep(2.0)
	r.RecordWindow()
	r.RecordEvaluation("ok")

	if _, err := r.Gather(); err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
}
