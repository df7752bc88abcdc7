package analysis

import (
	"math"
	"strings"
	"time"

	"alpha-radar/src/analysis/patterns"
	"alpha-radar/src/models"
	"alpha-radar/src/risk"
)

// Score gates of the reporting policy
const (
	SingleHitMinScore = 70.0
	NoHitMinScore     = 90.0
)

const noPatternInfo = "Strong trend, no specific pattern"

// Hit is one pattern or oscillator signal firing on the final bar.
type Hit struct {
	Type models.SignalType
	Info string
}

// Decision is the outcome of the reporting policy for one symbol.
type Decision struct {
	Valid    bool
	Type     models.SignalType
	Resonant bool
}

// -----------------------------------------------------------------------------

// Decide applies the reporting policy; the first matching rule wins.
func Decide(hits []Hit, score float64) Decision {
	switch {
	case len(hits) >= 2:
		return Decision{Valid: true, Type: models.SignalMultiSignal, Resonant: true}
	case len(hits) == 1 && score >= SingleHitMinScore:
		return Decision{Valid: true, Type: hits[0].Type}
	case len(hits) == 0 && score >= NoHitMinScore:
		return Decision{Valid: true, Type: models.SignalHighScore, Resonant: true}
	}
	return Decision{}
}

// CollectHits lists the signals firing on the final row, in reporting order.
func CollectHits(flags *models.MPatternFlags) []Hit {
	n := len(flags.DoubleBottom)
	if n == 0 {
		return nil
	}
	last := n - 1

	columns := []struct {
		fired bool
		hit   Hit
	}{
		{flags.DoubleBottom[last], Hit{models.SignalWBottom, "Double bottom breakout"}},
		{flags.Triangle[last], Hit{models.SignalTriangle, "Converging triangle"}},
		{flags.VCP[last], Hit{models.SignalVCP, "Volatility contraction (VCP)"}},
		{flags.Resonance[last], Hit{models.SignalResonance, "KDJ+RSI resonance"}},
		{flags.MACDCross[last], Hit{models.SignalMACDCross, "MACD cross/bullish"}},
	}

	var hits []Hit
	for _, c := range columns {
		if c.fired {
			hits = append(hits, c.hit)
		}
	}
	return hits
}

// -----------------------------------------------------------------------------

// SignalAggregator turns the detector output of one symbol into at most one signal.
type SignalAggregator struct {
	Patterns patterns.Config
	Risk     models.MRiskConfig
	Now      func() time.Time
}

// NewSignalAggregator creates an aggregator using the configured tunables
func NewSignalAggregator(cfg *models.MConfig) *SignalAggregator {
	return &SignalAggregator{
		Patterns: cfg.Patterns,
		Risk:     cfg.Risk,
		Now:      time.Now,
	}
}

// Evaluate returns the signal for the final bar, or nil when the policy rejects it.
func (a *SignalAggregator) Evaluate(symbol, name string, frame *models.MIndicatorFrame, flags *models.MPatternFlags) *models.MSignal {
	if frame.Len() == 0 {
		return nil
	}

	hits := CollectHits(flags)
	score := CompositeScore(frame)
	decision := Decide(hits, score.Value)
	if !decision.Valid {
		return nil
	}

	info := noPatternInfo
	if len(hits) > 0 {
		parts := make([]string, len(hits))
		for i, h := range hits {
			parts[i] = h.Info
		}
		info = strings.Join(parts, " + ")
	}

	last := frame.Last()
	closePrice := frame.Bars[last].Close
	stop := 0.0
	if atr := frame.ATR14[last]; !math.IsNaN(atr) {
		stop = risk.DynamicStop(closePrice, atr, a.Risk.StopATRMultiplier)
	}

	return &models.MSignal{
		Symbol:    symbol,
		Name:      name,
		Type:      decision.Type,
		Resonant:  decision.Resonant,
		Price:     closePrice,
		Info:      info,
		Score:     score.Value,
		ScoreDesc: score.ScoreDesc,
		StopPrice: stop,
		Phase:     patterns.WyckoffPhase(frame, a.Patterns),
		Events:    patterns.WyckoffEvents(flags, last),
		Timestamp: a.Now(),
	}
}
