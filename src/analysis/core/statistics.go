package core

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// Epsilon guards denominators instead of raising on division by zero.
const Epsilon = 1e-9

// -----------------------------------------------------------------------------

// NaNSlice returns n NaN values.
func NaNSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// hasNaN reports whether any value in data is NaN.
func hasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// isFlat reports whether every value in data is identical.
// Used as the exact zero-variance test; summed squares pick up rounding noise.
func isFlat(data []float64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// CalculateMean returns the arithmetic mean, NaN for empty input.
func CalculateMean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// CalculateMeanStd computes mean and sample standard deviation (n-1 denominator).
// A single element has std NaN; identical elements have std exactly 0.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return math.NaN(), math.NaN()
	}

	mean := CalculateMean(data)
	if len(data) == 1 {
		return mean, math.NaN()
	}
	if isFlat(data) {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)-1))
}

// -----------------------------------------------------------------------------

// CalculateCorrelation computes the Pearson correlation coefficient.
// It is NaN when lengths differ, fewer than 2 points are given or either side is constant.
func CalculateCorrelation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	if isFlat(x) || isFlat(y) {
		return math.NaN()
	}

	meanX := CalculateMean(x)
	meanY := CalculateMean(y)

	cov, varX, varY := 0.0, 0.0, 0.0
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	denominator := math.Sqrt(varX * varY)
	if denominator == 0 {
		return math.NaN()
	}

	// Rounding can push |r| marginally above 1
	return math.Max(-1, math.Min(1, cov/denominator))
}

// -----------------------------------------------------------------------------
// Rolling windows
// -----------------------------------------------------------------------------

// windowMask marks rows whose trailing window of w values is complete and NaN-free in
// every series. It also returns copies of the series with NaN seeded to 0, which keeps
// talib's running sums finite; masked rows discard whatever the seed produced.
func windowMask(w int, series ...[]float64) ([]bool, [][]float64) {
	n := len(series[0])
	defined := make([]bool, n)
	seeded := make([][]float64, len(series))
	nans := make([]int, n+1)

	for s, x := range series {
		seeded[s] = make([]float64, n)
		for i, v := range x {
			if math.IsNaN(v) {
				nans[i+1]++
				continue
			}
			seeded[s][i] = v
		}
	}
	for i := 0; i < n; i++ {
		nans[i+1] += nans[i]
	}

	for i := w - 1; i < n; i++ {
		defined[i] = nans[i+1] == nans[i+1-w]
	}
	return defined, seeded
}

// talibWindow applies a trailing-window talib function and masks undefined rows.
func talibWindow(x []float64, w int, fn func(seeded []float64) []float64) []float64 {
	out := NaNSlice(len(x))
	if w <= 0 || len(x) < w {
		return out
	}

	defined, seeded := windowMask(w, x)
	res := fn(seeded[0])
	for i, ok := range defined {
		if ok {
			out[i] = res[i]
		}
	}
	return out
}

// rolling applies fn to every complete trailing window of size w.
// Rows before the first complete window, and windows containing NaN, are NaN.
func rolling(x []float64, w int, fn func(window []float64) float64) []float64 {
	out := NaNSlice(len(x))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(x); i++ {
		window := x[i-w+1 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = fn(window)
	}
	return out
}

// RollingMean is the trailing mean over w values.
func RollingMean(x []float64, w int) []float64 {
	return talibWindow(x, w, func(seeded []float64) []float64 {
		return talib.Sma(seeded, w)
	})
}

// RollingStd is the trailing sample standard deviation over w values.
// talib.StdDev divides by n, so the n-1 form stays local.
func RollingStd(x []float64, w int) []float64 {
	return rolling(x, w, func(window []float64) float64 {
		_, std := CalculateMeanStd(window)
		return std
	})
}

// RollingMin is the trailing minimum over w values.
func RollingMin(x []float64, w int) []float64 {
	if w == 1 {
		return rolling(x, 1, func(window []float64) float64 { return window[0] })
	}
	return talibWindow(x, w, func(seeded []float64) []float64 {
		return talib.Min(seeded, w)
	})
}

// RollingMax is the trailing maximum over w values.
func RollingMax(x []float64, w int) []float64 {
	if w == 1 {
		return rolling(x, 1, func(window []float64) float64 { return window[0] })
	}
	return talibWindow(x, w, func(seeded []float64) []float64 {
		return talib.Max(seeded, w)
	})
}

// RollingCorr is the trailing Pearson correlation of x and y over w values.
// Windows where either side is constant are NaN.
func RollingCorr(x, y []float64, w int) []float64 {
	out := NaNSlice(len(x))
	if len(x) != len(y) || w <= 1 || len(x) < w {
		return out
	}

	defined, seeded := windowMask(w, x, y)
	corr := talib.Correl(seeded[0], seeded[1], w)
	xMin, xMax := talib.Min(seeded[0], w), talib.Max(seeded[0], w)
	yMin, yMax := talib.Min(seeded[1], w), talib.Max(seeded[1], w)

	for i, ok := range defined {
		if !ok || xMin[i] == xMax[i] || yMin[i] == yMax[i] {
			continue
		}
		// Rounding can push |r| marginally above 1
		out[i] = math.Max(-1, math.Min(1, corr[i]))
	}
	return out
}

// -----------------------------------------------------------------------------
// Element-wise transforms
// -----------------------------------------------------------------------------

// Shift moves values n rows later, padding the head with NaN.
func Shift(x []float64, n int) []float64 {
	out := NaNSlice(len(x))
	for i := n; i < len(x); i++ {
		out[i] = x[i-n]
	}
	return out
}

// PctChange is x[t]/x[t-1]-1, NaN on the first row.
func PctChange(x []float64) []float64 {
	out := NaNSlice(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = CalculateChangePercent(x[i], x[i-1])
	}
	return out
}

// EWM is an exponentially weighted mean without bias adjustment:
// y[0] = x[first defined], y[t] = (1-alpha)*y[t-1] + alpha*x[t].
// Leading NaNs stay NaN; later NaN inputs hold the previous value.
func EWM(x []float64, alpha float64) []float64 {
	out := NaNSlice(len(x))
	seeded := false
	prev := 0.0
	for i, v := range x {
		switch {
		case math.IsNaN(v):
			if seeded {
				out[i] = prev
			}
		case !seeded:
			prev = v
			seeded = true
			out[i] = prev
		default:
			prev = (1-alpha)*prev + alpha*v
			out[i] = prev
		}
	}
	return out
}

// SpanAlpha converts an EMA span to its smoothing factor.
func SpanAlpha(span int) float64 {
	return 2.0 / (float64(span) + 1.0)
}

// ComAlpha converts a center of mass to its smoothing factor.
func ComAlpha(com float64) float64 {
	return 1.0 / (1.0 + com)
}
