package core

import "math"

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates percentage change.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// TrueRange returns max(H-L, |H-prevC|, |L-prevC|). Without a previous close it is H-L.
func TrueRange(high, low, prevClose float64, hasPrev bool) float64 {
	tr := high - low
	if !hasPrev {
		return tr
	}
	tr = math.Max(tr, math.Abs(high-prevClose))
	return math.Max(tr, math.Abs(low-prevClose))
}

// -----------------------------------------------------------------------------

// CalculateVolumeRatio divides volume by its average, NaN while the average is undefined.
func CalculateVolumeRatio(volume, avgVolume float64) float64 {
	if math.IsNaN(avgVolume) {
		return math.NaN()
	}
	return volume / (avgVolume + Epsilon)
}

// -----------------------------------------------------------------------------

// BarRange is H-L with a flat bar counted as 1 so it can divide safely.
func BarRange(high, low float64) float64 {
	r := high - low
	if r == 0 {
		return 1
	}
	return r
}

// ClosePosition places the close inside the bar range: 0 at the low, 1 at the high.
func ClosePosition(closePrice, high, low float64) float64 {
	return (closePrice - low) / BarRange(high, low)
}

// Amplitude is the bar range relative to the close.
func Amplitude(high, low, closePrice float64) float64 {
	return (high - low) / closePrice
}

// -----------------------------------------------------------------------------

// Sigmoid maps the real line onto (0, 1).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
