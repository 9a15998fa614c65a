package core

import (
	"fmt"
	"time"
)

// ValidateBars checks the bar-feed contract: non-empty, strictly increasing
// unique times, and internally consistent OHLC values. A violation rejects
// the whole run.
func ValidateBars(bars []Bar) error {
	if len(bars) == 0 {
		return ErrNoData
	}
	var prev time.Time
	for i, b := range bars {
		if i > 0 && !b.Time.After(prev) {
			return WrapError(ErrInputInvalid,
				fmt.Errorf("bar %d time %s not after previous %s", i, b.Time, prev))
		}
		prev = b.Time
		if b.High < b.Low {
			return WrapError(ErrInputInvalid,
				fmt.Errorf("bar %d high %.6f below low %.6f", i, b.High, b.Low))
		}
		if b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low {
			return WrapError(ErrInputInvalid,
				fmt.Errorf("bar %d open/close outside high-low range", i))
		}
	}
	return nil
}

// ValidateSignals checks the signal-source contract against a validated bar
// series: signals must be time-ordered and each signal time must match an
// existing bar exactly.
func ValidateSignals(signals []Signal, bars []Bar) error {
	barTimes := make(map[time.Time]struct{}, len(bars))
	for _, b := range bars {
		barTimes[b.Time] = struct{}{}
	}
	var prev time.Time
	for i, s := range signals {
		if !s.Side.IsValid() {
			return WrapError(ErrInputInvalid,
				fmt.Errorf("signal %d has unknown side %q", i, s.Side))
		}
		if i > 0 && s.Time.Before(prev) {
			return WrapError(ErrInputInvalid,
				fmt.Errorf("signal %d time %s before previous %s", i, s.Time, prev))
		}
		prev = s.Time
		if _, ok := barTimes[s.Time]; !ok {
			return WrapError(ErrInputInvalid,
				fmt.Errorf("signal %d time %s matches no bar", i, s.Time))
		}
	}
	return nil
}
