package core

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) < 1e-9
}

func TestRollingMeanWarmup(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	got := RollingMean(x, 3)
	want := []float64{math.NaN(), math.NaN(), 2, 3, 4}

	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("RollingMean[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRollingPropagatesNaN(t *testing.T) {
	x := []float64{math.NaN(), 1, 2, 3}
	got := RollingMean(x, 2)
	if !math.IsNaN(got[1]) || got[2] != 1.5 || got[3] != 2.5 {
		t.Fatalf("unexpected %v", got)
	}
}

func TestRollingMinMaxMaskNaNWindows(t *testing.T) {
	x := []float64{5, math.NaN(), 3, 7, 1, 4}
	lo := RollingMin(x, 2)
	hi := RollingMax(x, 2)

	want := [][3]float64{ // index, min, max
		{3, 3, 7},
		{4, 1, 7},
		{5, 1, 4},
	}
	for i := 0; i < 3; i++ {
		if !math.IsNaN(lo[i]) || !math.IsNaN(hi[i]) {
			t.Fatalf("row %d touches NaN or warm-up: min %v max %v", i, lo[i], hi[i])
		}
	}
	for _, w := range want {
		i := int(w[0])
		if lo[i] != w[1] || hi[i] != w[2] {
			t.Fatalf("row %d = %v/%v, want %v/%v", i, lo[i], hi[i], w[1], w[2])
		}
	}

	if got := RollingMin([]float64{1, 2}, 3); !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("window longer than input must be NaN: %v", got)
	}
}

func TestRollingCorr(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 5, 5, 5}
	y := []float64{2, 4, 6, 8, 9, 1, 3, 7}
	got := RollingCorr(x, y, 4)

	for i := 0; i < 3; i++ {
		if !math.IsNaN(got[i]) {
			t.Fatalf("warm-up row %d = %v", i, got[i])
		}
	}
	if !almostEqual(got[3], 1) {
		t.Fatalf("perfect window = %v, want 1", got[3])
	}
	if want := CalculateCorrelation(x[2:6], y[2:6]); math.Abs(got[5]-want) > 1e-9 {
		t.Fatalf("row 5 = %v, want %v", got[5], want)
	}
	if !math.IsNaN(got[7]) {
		t.Fatalf("constant x window must be NaN, got %v", got[7])
	}
}

func TestCalculateMeanStdSample(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		mean float64
		std  float64
	}{
		{"sample std", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, math.Sqrt(32.0 / 7.0)},
		{"flat", []float64{0.1, 0.1, 0.1}, 0.1, 0},
		{"single", []float64{3}, 3, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := CalculateMeanStd(tt.data)
			if !almostEqual(mean, tt.mean) || !almostEqual(std, tt.std) {
				t.Fatalf("got (%v, %v), want (%v, %v)", mean, std, tt.mean, tt.std)
			}
		})
	}
}

func TestCalculateCorrelation(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
		{"constant side", []float64{1, 2, 3}, []float64{5, 5, 5}, math.NaN()},
		{"length mismatch", []float64{1, 2}, []float64{1}, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateCorrelation(tt.x, tt.y); !almostEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShiftAndPctChange(t *testing.T) {
	x := []float64{10, 11, 9.9}

	shifted := Shift(x, 1)
	if !math.IsNaN(shifted[0]) || shifted[1] != 10 || shifted[2] != 11 {
		t.Fatalf("Shift = %v", shifted)
	}

	pct := PctChange(x)
	if !math.IsNaN(pct[0]) || !almostEqual(pct[1], 0.1) || !almostEqual(pct[2], -0.1) {
		t.Fatalf("PctChange = %v", pct)
	}
}

func TestEWMSeedsOnFirstDefinedValue(t *testing.T) {
	x := []float64{math.NaN(), math.NaN(), 30, 60, math.NaN()}
	got := EWM(x, ComAlpha(2))

	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("leading values should stay NaN: %v", got)
	}
	if got[2] != 30 || !almostEqual(got[3], 40) || !almostEqual(got[4], 40) {
		t.Fatalf("EWM = %v", got)
	}
}

func TestSmoothingFactors(t *testing.T) {
	if !almostEqual(SpanAlpha(12), 2.0/13.0) {
		t.Fatalf("SpanAlpha(12) = %v", SpanAlpha(12))
	}
	if !almostEqual(ComAlpha(2), 1.0/3.0) {
		t.Fatalf("ComAlpha(2) = %v", ComAlpha(2))
	}
}

func TestTrueRangeAndPositions(t *testing.T) {
	if got := TrueRange(11, 10, 12, true); got != 2 {
		t.Fatalf("TrueRange gap down = %v", got)
	}
	if got := TrueRange(11, 10, 0, false); got != 1 {
		t.Fatalf("TrueRange first bar = %v", got)
	}
	if got := ClosePosition(10, 10, 10); got != 0 {
		t.Fatalf("flat bar close position = %v", got)
	}
	if got := ClosePosition(10.8, 11, 10); !almostEqual(got, 0.8) {
		t.Fatalf("close position = %v", got)
	}
	if got := Sigmoid(0); got != 0.5 {
		t.Fatalf("Sigmoid(0) = %v", got)
	}
}
