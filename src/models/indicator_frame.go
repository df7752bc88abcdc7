package models

// MIndicatorFrame is a bar series augmented with derived columns.
// Every column has len(Bars) entries; undefined values are NaN.
type MIndicatorFrame struct {
	Bars []MBar

	ATR14        []float64
	MA20         []float64
	MA50         []float64
	MA200        []float64
	VolMA20      []float64
	VolRatio     []float64
	PctChange    []float64
	CorrPV       []float64
	VWAPDev      []float64
	RSquared     []float64
	SharpeMom    []float64
	BollWidth    []float64
	Support20    []float64
	Resistance20 []float64
	ClosePos     []float64

	// Oscillators
	K    []float64
	D    []float64
	RSI6 []float64
	DIF  []float64
	DEA  []float64
	MACD []float64

	Resonance  []bool
	MACDSignal []bool
}

// Len returns the number of rows.
func (f *MIndicatorFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Bars)
}

// Last returns the index of the final row, or -1 for an empty frame.
func (f *MIndicatorFrame) Last() int {
	return f.Len() - 1
}

// -----------------------------------------------------------------------------

// MPatternFlags holds one boolean column per detector, aligned to the frame rows.
type MPatternFlags struct {
	DoubleBottom    []bool
	Triangle        []bool
	VCP             []bool
	WyckoffSpring   []bool
	WyckoffUpthrust []bool
	StoppingVolume  []bool
	Churning        []bool
	NoDemand        []bool
	Resonance       []bool
	MACDCross       []bool
}

// NewPatternFlags allocates all columns for n rows.
func NewPatternFlags(n int) *MPatternFlags {
	return &MPatternFlags{
		DoubleBottom:    make([]bool, n),
		Triangle:        make([]bool, n),
		VCP:             make([]bool, n),
		WyckoffSpring:   make([]bool, n),
		WyckoffUpthrust: make([]bool, n),
		StoppingVolume:  make([]bool, n),
		Churning:        make([]bool, n),
		NoDemand:        make([]bool, n),
		Resonance:       make([]bool, n),
		MACDCross:       make([]bool, n),
	}
}

// MPatternEvent is one detector hit in a historical timeline.
type MPatternEvent struct {
	Pattern string  `json:"pattern"`
	Index   int     `json:"index"`
	Date    string  `json:"date"`
	Price   float64 `json:"price"`
	Info    string  `json:"info"`
}
