// Package indicator provides the rolling price transforms strategies build
// signals from. All functions share one alignment convention: an input of n
// prices and a period p yields n-p+1 values, the first covering prices[0:p].
package indicator

// SMA calculates the simple moving average.
// Returns slice of length: len(prices) - period + 1.
func SMA(prices []float64, period int) []float64 {
	if len(prices) < period || period <= 0 {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// EMA calculates the exponential moving average, seeded with the first
// window's SMA.
func EMA(prices []float64, period int) []float64 {
	if len(prices) < period || period <= 0 {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	multiplier := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result = append(result, ema)

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result
}
