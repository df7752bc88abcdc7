package patterns

import (
	"math"

	"alpha-radar/src/analysis/core"
	"alpha-radar/src/models"
)

// VCP chunk boundaries, counted back from the evaluated bar
const (
	vcpRecentStart = 10
	vcpMiddleStart = 25
	vcpOldestStart = 45
	vcpVolLong     = 50
	vcpVolShort    = 5
)

// VCPAt reports a volatility-contraction breakout on bar i.
func VCPAt(frame *models.MIndicatorFrame, i int, cfg Config) bool {
	if i < cfg.VCPMinBars-1 || i < vcpVolLong || i >= frame.Len() {
		return false
	}

	bar := frame.Bars[i]
	if bar.Volume <= 0 {
		return false
	}

	// 1. Breakout day: volume surge and a strong gain
	volumes := models.VolumeSeries(frame.Bars[i-vcpVolLong : i])
	v50 := core.CalculateMean(volumes)
	if bar.Volume < cfg.VCPVolMult*v50 {
		return false
	}
	gain := frame.PctChange[i]
	if math.IsNaN(gain) || gain < cfg.VCPMinGain {
		return false
	}

	// 2. Contracting swings, oldest to newest
	amp1 := maxAmplitude(frame.Bars[i-vcpRecentStart : i])
	amp2 := maxAmplitude(frame.Bars[i-vcpMiddleStart : i-vcpRecentStart])
	amp3 := maxAmplitude(frame.Bars[i-vcpOldestStart : i-vcpMiddleStart])
	if !(amp3 > amp2 && amp2 > amp1) || amp1 >= cfg.VCPMaxRecentAmp {
		return false
	}

	// 3. Volume dry-up before the breakout
	v5 := core.CalculateMean(volumes[len(volumes)-vcpVolShort:])
	return v5 < v50
}

func maxAmplitude(bars []models.MBar) float64 {
	amp := 0.0
	for _, b := range bars {
		amp = math.Max(amp, core.Amplitude(b.High, b.Low, b.Close))
	}
	return amp
}
