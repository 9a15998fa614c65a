package seqreversal

import (
	"testing"
	"time"

	"github.com/newthinker/rewind/internal/core"
)

func barsFromCloses(closes []float64) []core.Bar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func TestRun_FadesStreaks(t *testing.T) {
	bars := barsFromCloses([]float64{10, 9, 8, 7, 11, 12, 13})

	signals, err := New().Run(bars, map[string]any{"streak": 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("signals = %v, want 2", signals)
	}
	if signals[0].Side != core.SideBuy || !signals[0].Time.Equal(bars[2].Time) {
		t.Errorf("first signal = %+v, want BUY on bar 2", signals[0])
	}
	if signals[1].Side != core.SideSell || !signals[1].Time.Equal(bars[5].Time) {
		t.Errorf("second signal = %+v, want SELL on bar 5", signals[1])
	}
}

func TestRun_LongerStreakSignalsOnce(t *testing.T) {
	bars := barsFromCloses([]float64{10, 9, 8, 7, 6, 5})
	signals, err := New().Run(bars, map[string]any{"streak": 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(signals) != 1 {
		t.Errorf("signals = %v, want exactly 1", signals)
	}
}

func TestRun_EqualCloseResetsStreak(t *testing.T) {
	bars := barsFromCloses([]float64{10, 9, 9, 8, 7})
	signals, err := New().Run(bars, map[string]any{"streak": 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(signals) != 1 || !signals[0].Time.Equal(bars[4].Time) {
		t.Errorf("signals = %v, want one BUY on bar 4", signals)
	}
}

func TestRun_NoStreakIsSilent(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 10, 11, 10})
	signals, err := New().Run(bars, map[string]any{"streak": 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("signals = %v, want none", signals)
	}
}
