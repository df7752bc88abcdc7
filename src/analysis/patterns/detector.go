package patterns

import (
	"alpha-radar/src/models"

	"github.com/creasty/defaults"
)

// Config holds the detector tunables.
type Config = models.MPatternConfig

// Mode selects how much of the series the windowed detectors evaluate.
type Mode int

const (
	// ScanMode evaluates only the final bar.
	ScanMode Mode = iota
	// HistoricalMode evaluates every bar using only data up to that bar.
	HistoricalMode
)

// DefaultConfig returns the tunables with their default values.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

// -----------------------------------------------------------------------------

// Detect runs every detector over the frame and returns aligned flag columns.
func Detect(frame *models.MIndicatorFrame, mode Mode, cfg Config) *models.MPatternFlags {
	flags, _ := detect(frame, mode, cfg)
	return flags
}

// DetectHistory runs HistoricalMode and also returns the double-bottom breakouts behind the
// DoubleBottom column, so the pairwise search runs once per timeline.
func DetectHistory(frame *models.MIndicatorFrame, cfg Config) (*models.MPatternFlags, []models.MPatternEvent) {
	return detect(frame, HistoricalMode, cfg)
}

func detect(frame *models.MIndicatorFrame, mode Mode, cfg Config) (*models.MPatternFlags, []models.MPatternEvent) {
	n := frame.Len()
	flags := models.NewPatternFlags(n)
	if n == 0 {
		return flags, nil
	}

	// Oscillator flags come precomputed with the frame
	copy(flags.Resonance, frame.Resonance)
	copy(flags.MACDCross, frame.MACDSignal)

	var doubleBottoms []models.MPatternEvent
	switch mode {
	case HistoricalMode:
		applyWyckoff(frame, flags, 0, cfg)
		doubleBottoms = HistoricalDoubleBottoms(frame, cfg)
		for _, ev := range doubleBottoms {
			flags.DoubleBottom[ev.Index] = true
		}
		for i := 0; i < n; i++ {
			flags.Triangle[i] = TriangleAt(frame, i, cfg)
			flags.VCP[i] = VCPAt(frame, i, cfg)
		}
	default:
		last := frame.Last()
		applyWyckoff(frame, flags, last, cfg)
		flags.DoubleBottom[last] = ScanDoubleBottom(frame, cfg)
		flags.Triangle[last] = TriangleAt(frame, last, cfg)
		flags.VCP[last] = VCPAt(frame, last, cfg)
	}

	return flags, doubleBottoms
}

// -----------------------------------------------------------------------------
// Local extrema
// -----------------------------------------------------------------------------

// FindTroughs returns indices of strict local minima in ascending order.
// The first and last element are never troughs.
func FindTroughs(x []float64) []int {
	var out []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] < x[i-1] && x[i] < x[i+1] {
			out = append(out, i)
		}
	}
	return out
}

// FindPeaks returns indices of strict local maxima in ascending order.
func FindPeaks(x []float64) []int {
	var out []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] > x[i-1] && x[i] > x[i+1] {
			out = append(out, i)
		}
	}
	return out
}

func maxOf(x []float64) float64 {
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
