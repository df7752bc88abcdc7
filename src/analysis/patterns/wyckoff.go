package patterns

import (
	"math"

	"alpha-radar/src/analysis/core"
	"alpha-radar/src/models"
)

// Event thresholds
const (
	weakCloseBelow   = 0.4
	strongCloseAbove = 0.6
	climaxVolMult    = 2.0
	smallBodyRatio   = 0.3
	noDemandVolMult  = 0.8
)

// Event names reported on signals
const (
	EventSpring         = "Spring"
	EventUpthrust       = "Upthrust"
	EventStoppingVolume = "Stopping Volume"
	EventChurning       = "Churning"
	EventNoDemand       = "No Demand"
)

// Wyckoff phases
const (
	PhaseUnknown      = "Unknown"
	PhaseMarkup       = "Markup"
	PhaseMarkdown     = "Markdown"
	PhaseDistribution = "Distribution"
	PhaseAccumulation = "Accumulation"
	PhaseRange        = "Range"
)

// -----------------------------------------------------------------------------

// applyWyckoff fills the Wyckoff and VSA columns for bars from..n-1.
// Comparisons against undefined levels are false, so warm-up rows never fire.
func applyWyckoff(frame *models.MIndicatorFrame, flags *models.MPatternFlags, from int, cfg Config) {
	n := frame.Len()
	if n < cfg.WyckoffMinBars {
		return
	}

	for i := max(from, 0); i < n; i++ {
		b := frame.Bars[i]
		support := frame.Support20[i]
		resistance := frame.Resistance20[i]
		ma20 := frame.MA20[i]
		volMA := frame.VolMA20[i]
		closePos := frame.ClosePos[i]
		climax := b.Volume > climaxVolMult*volMA

		flags.WyckoffSpring[i] = b.Low < support && b.Close > support && b.Volume < volMA
		flags.WyckoffUpthrust[i] = b.High > resistance && b.Close < resistance && closePos < weakCloseBelow
		flags.StoppingVolume[i] = b.Close < ma20 && climax && closePos > strongCloseAbove

		body := math.Abs(b.Close-b.Open) / core.BarRange(b.High, b.Low)
		flags.Churning[i] = b.Close > ma20 && climax && body < smallBodyRatio

		upBar := i > 0 && b.Close > frame.Bars[i-1].Close
		flags.NoDemand[i] = b.Close < ma20 && upBar && b.Volume < noDemandVolMult*volMA
	}
}

// WyckoffEvents names the Wyckoff and VSA events firing on bar i.
func WyckoffEvents(flags *models.MPatternFlags, i int) []string {
	if i < 0 || i >= len(flags.WyckoffSpring) {
		return nil
	}

	var events []string
	if flags.WyckoffSpring[i] {
		events = append(events, EventSpring)
	}
	if flags.WyckoffUpthrust[i] {
		events = append(events, EventUpthrust)
	}
	if flags.StoppingVolume[i] {
		events = append(events, EventStoppingVolume)
	}
	if flags.Churning[i] {
		events = append(events, EventChurning)
	}
	if flags.NoDemand[i] {
		events = append(events, EventNoDemand)
	}
	return events
}

// -----------------------------------------------------------------------------

// WyckoffPhase classifies the final bar from the ordering of close, MA50 and MA200.
func WyckoffPhase(frame *models.MIndicatorFrame, cfg Config) string {
	n := frame.Len()
	if n == 0 || n < cfg.PhaseMinBars {
		return PhaseUnknown
	}

	last := frame.Last()
	c := frame.Bars[last].Close
	ma50 := frame.MA50[last]
	ma200 := frame.MA200[last]
	if math.IsNaN(ma50) || math.IsNaN(ma200) {
		return PhaseUnknown
	}

	switch {
	case c > ma50 && ma50 > ma200:
		return PhaseMarkup
	case c < ma50 && ma50 < ma200:
		return PhaseMarkdown
	case ma50 > ma200 && c < ma50:
		return PhaseDistribution
	case ma50 < ma200 && c > ma50:
		return PhaseAccumulation
	}
	return PhaseRange
}
