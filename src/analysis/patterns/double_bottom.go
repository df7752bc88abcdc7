package patterns

import (
	"fmt"
	"math"
	"sort"

	"alpha-radar/src/models"
)

const patternDoubleBottom = "W-Bottom"

// -----------------------------------------------------------------------------

// ScanDoubleBottom reports whether a double bottom breaks out on the final bar.
// Only troughs inside the trailing ScanLookback window are paired, newest first.
func ScanDoubleBottom(frame *models.MIndicatorFrame, cfg Config) bool {
	n := frame.Len()
	if n < cfg.ScanLookback || n < 3 {
		return false
	}

	last := n - 1
	windowStart := max(0, last-cfg.ScanLookback)
	windowEnd := last - cfg.RightLegBars
	if windowEnd < windowStart {
		return false
	}

	// Only the window and one neighbour on each side decide which bars are troughs
	lo := max(0, windowStart-1)
	lows := models.LowSeries(frame.Bars[lo:min(windowEnd+2, n)])

	var candidates []int
	for _, t := range FindTroughs(lows) {
		if t += lo; t >= windowStart && t <= windowEnd {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) < 2 {
		return false
	}
	if len(candidates) > cfg.RecentTroughs {
		candidates = candidates[len(candidates)-cfg.RecentTroughs:]
	}

	closeNow := frame.Bars[last].Close
	for i := len(candidates) - 1; i >= 1; i-- {
		t2 := candidates[i]
		for j := i - 1; j >= 0; j-- {
			t1 := candidates[j]
			dist := t2 - t1
			if dist < cfg.MinDistance {
				continue
			}
			if dist > cfg.MaxDistance {
				break
			}

			neck, ok := necklineFor(frame, t1, t2, cfg.DiffATR, cfg.ScanDepthATR)
			if !ok {
				continue
			}

			// Fresh cross: one of the two previous closes was still at or below the neckline
			crossed := frame.Bars[last-1].Close <= neck || frame.Bars[last-2].Close <= neck
			if closeNow > neck && crossed {
				return true
			}
		}
	}

	return false
}

// -----------------------------------------------------------------------------

type breakoutCandidate struct {
	index int
	t1    int
	t2    int
	neck  float64
}

// HistoricalDoubleBottoms enumerates every confirmed double-bottom breakout in the series.
// Troughs are visited in ascending index order, which lets the inner loop stop once the
// pair distance exceeds MaxDistance. Breakouts closer than FreshnessBars to the previously
// kept one are suppressed.
func HistoricalDoubleBottoms(frame *models.MIndicatorFrame, cfg Config) []models.MPatternEvent {
	n := frame.Len()
	if n < 3 {
		return nil
	}

	troughs := FindTroughs(models.LowSeries(frame.Bars))

	var candidates []breakoutCandidate
	for i := 0; i < len(troughs); i++ {
		for j := i + 1; j < len(troughs); j++ {
			t1, t2 := troughs[i], troughs[j]
			dist := t2 - t1
			if dist < cfg.HistMinDistance {
				continue
			}
			if dist > cfg.MaxDistance {
				break
			}

			neck, ok := necklineFor(frame, t1, t2, cfg.DiffATR, cfg.HistDepthATR)
			if !ok {
				continue
			}

			// First close above the neckline after the second trough
			end := min(t2+cfg.BreakoutWindow, n-1)
			for k := t2 + 1; k <= end; k++ {
				if frame.Bars[k].Close > neck {
					candidates = append(candidates, breakoutCandidate{index: k, t1: t1, t2: t2, neck: neck})
					break
				}
			}
		}
	}

	var events []models.MPatternEvent
	for _, c := range foldFresh(candidates, cfg.FreshnessBars) {
		bar := frame.Bars[c.index]
		events = append(events, models.MPatternEvent{
			Pattern: patternDoubleBottom,
			Index:   c.index,
			Date:    bar.Date.Format("2006-01-02"),
			Price:   bar.Close,
			Info: fmt.Sprintf("Double bottom breakout (bottom1 %.2f, bottom2 %.2f, neckline %.2f)",
				frame.Bars[c.t1].Low, frame.Bars[c.t2].Low, c.neck),
		})
	}

	return events
}

// -----------------------------------------------------------------------------

// foldFresh orders candidates chronologically and keeps a breakout only when it lands at
// least freshness bars after the previously kept one. Same-bar duplicates collapse to one.
func foldFresh(candidates []breakoutCandidate, freshness int) []breakoutCandidate {
	sorted := make([]breakoutCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].index < sorted[b].index
	})

	var kept []breakoutCandidate
	for _, c := range sorted {
		if len(kept) > 0 {
			prev := kept[len(kept)-1].index
			if c.index == prev || c.index-prev < freshness {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// -----------------------------------------------------------------------------

// necklineFor validates a trough pair against ATR(t2) and returns its neckline.
// The neckline is the highest high in [t1, t2).
func necklineFor(frame *models.MIndicatorFrame, t1, t2 int, diffATR, depthATR float64) (float64, bool) {
	atr := frame.ATR14[t2]
	if math.IsNaN(atr) {
		return 0, false
	}

	low1 := frame.Bars[t1].Low
	low2 := frame.Bars[t2].Low
	if math.Abs(low2-low1) > diffATR*atr {
		return 0, false
	}

	neck := maxOf(models.HighSeries(frame.Bars[t1:t2]))
	if neck-(low1+low2)/2 < depthATR*atr {
		return 0, false
	}

	return neck, true
}
