package ta

import "math"

func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}

func EMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	k := 2.0 / float64(n+1)
	ema := SMA(vals[:n], n)
	for i := n; i < len(vals); i++ {
		ema = vals[i]*k + ema*(1-k)
	}
	return ema
}

func RSI(vals []float64, period int) float64 {
	if len(vals) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(vals) - period; i < len(vals); i++ {
		d := vals[i] - vals[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// MACD returns the difference between the fast and slow EMAs. Positive
// values read as bullish momentum.
func MACD(vals []float64, fast, slow int) float64 {
	if len(vals) < slow || fast <= 0 || slow <= fast {
		return math.NaN()
	}
	return EMA(vals, fast) - EMA(vals, slow)
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

// Volatility is the standard deviation of the trailing window expressed
// as a fraction of its mean.
func Volatility(vals []float64, n int) float64 {
	m := SMA(vals, n)
	if math.IsNaN(m) || m == 0 {
		return math.NaN()
	}
	return StdDev(vals, n) / m
}
