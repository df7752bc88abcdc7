package patterns

import (
	"math"

	"alpha-radar/src/analysis/core"
	"alpha-radar/src/models"
)

// TriangleAt reports a converging-triangle breakout on bar i.
// The triangle is fitted on the TriangleWindow bars before i; bar i only confirms.
func TriangleAt(frame *models.MIndicatorFrame, i int, cfg Config) bool {
	if i < cfg.TriangleWindow-1 || i >= frame.Len() {
		return false
	}

	// Volume confirmation
	volMA := frame.VolMA20[i]
	if math.IsNaN(volMA) || frame.Bars[i].Volume < cfg.TriangleVolMult*volMA {
		return false
	}

	start := max(0, i-cfg.TriangleWindow)
	window := frame.Bars[start:i]
	highs := models.HighSeries(window)
	lows := models.LowSeries(window)

	peaks := FindPeaks(highs)
	troughs := FindTroughs(lows)
	if len(peaks) < 2 || len(troughs) < 2 {
		return false
	}

	p1, p2 := peaks[0], peaks[len(peaks)-1]
	t1, t2 := troughs[0], troughs[len(troughs)-1]

	// Lower highs and higher lows
	if highs[p2] >= highs[p1] || lows[t2] <= lows[t1] {
		return false
	}

	// Project the upper trend line onto the current bar
	slope := (highs[p2] - highs[p1]) / (float64(p2-p1) + core.Epsilon)
	resistance := highs[p1] + slope*float64(len(window)-p1)

	closeNow := frame.Bars[i].Close
	return closeNow > resistance && closeNow > highs[p2]
}
