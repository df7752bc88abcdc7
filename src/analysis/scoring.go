package analysis

import (
	"fmt"
	"math"

	"alpha-radar/src/analysis/core"
	"alpha-radar/src/models"
)

// CompositeScore blends trend linearity, price-volume correlation and risk-adjusted
// momentum of the final bar into a 0-100 score.
func CompositeScore(frame *models.MIndicatorFrame) models.MScore {
	if frame == nil || frame.Len() == 0 {
		return models.MScore{ScoreDesc: describeScore(0, 0, 0)}
	}

	last := frame.Last()
	rsq := zeroIfNaN(frame.RSquared[last])
	corr := zeroIfNaN(frame.CorrPV[last])
	sharpe := zeroIfNaN(frame.SharpeMom[last])

	trend := clamp(100*rsq, 0, 100)
	pv := clamp(50*(corr+1), 0, 100)
	momentum := 100 * core.Sigmoid(sharpe)

	return models.MScore{
		Value:     round1((trend + pv + momentum) / 3),
		Trend:     trend,
		PV:        pv,
		Momentum:  momentum,
		ScoreDesc: describeScore(trend, pv, momentum),
	}
}

func describeScore(trend, pv, momentum float64) string {
	return fmt.Sprintf("Trend:%d PV:%d Momentum:%d", int(trend), int(pv), int(momentum))
}

// -----------------------------------------------------------------------------

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
