package indicator

import "math"

// RollingStd calculates the rolling population standard deviation.
// Returns slice of length: len(prices) - period + 1, aligned with SMA.
func RollingStd(prices []float64, period int) []float64 {
	if len(prices) < period || period <= 0 {
		return []float64{}
	}

	means := SMA(prices, period)
	result := make([]float64, 0, len(means))
	for i, mean := range means {
		var ss float64
		for _, p := range prices[i : i+period] {
			d := p - mean
			ss += d * d
		}
		result = append(result, math.Sqrt(ss/float64(period)))
	}
	return result
}

// ZScore calculates how many rolling standard deviations each price sits
// from its rolling mean. A zero deviation window yields a zero score.
// Returns slice of length: len(prices) - period + 1.
func ZScore(prices []float64, period int) []float64 {
	means := SMA(prices, period)
	stds := RollingStd(prices, period)

	result := make([]float64, 0, len(means))
	for i := range means {
		price := prices[i+period-1]
		if stds[i] == 0 {
			result = append(result, 0)
			continue
		}
		result = append(result, (price-means[i])/stds[i])
	}
	return result
}
