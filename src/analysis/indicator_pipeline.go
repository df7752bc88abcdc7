package analysis

import (
	"math"

	"alpha-radar/src/analysis/core"
	"alpha-radar/src/models"

	talib "github.com/markcheno/go-talib"
)

// Indicator windows
const (
	atrWindow     = 14
	maShort       = 20
	maMedium      = 50
	maLong        = 200
	factorWindow  = 20
	bollWindow    = 20
	bollSigma     = 2.0
	levelWindow   = 20
	kdjWindow     = 9
	kdjCom        = 2.0
	rsiPeriod     = 6
	macdFast      = 12
	macdSlow      = 26
	macdSignalLen = 9
)

// Oscillator thresholds for the oversold resonance flag
const (
	resonanceKD  = 20.0
	resonanceRSI = 30.0
)

// -----------------------------------------------------------------------------

// ComputeIndicators returns an augmented copy of bars. The input slice is not modified.
// Short series are never an error: windowed columns are simply NaN until enough rows exist.
func ComputeIndicators(bars []models.MBar) *models.MIndicatorFrame {
	n := len(bars)
	frame := &models.MIndicatorFrame{Bars: make([]models.MBar, n)}
	copy(frame.Bars, bars)

	closes := models.CloseSeries(frame.Bars)
	highs := models.HighSeries(frame.Bars)
	lows := models.LowSeries(frame.Bars)
	volumes := models.VolumeSeries(frame.Bars)

	// 1. Volatility and trend averages
	frame.ATR14 = core.RollingMean(trueRanges(frame.Bars), atrWindow)
	frame.MA20 = core.RollingMean(closes, maShort)
	frame.MA50 = core.RollingMean(closes, maMedium)
	frame.MA200 = core.RollingMean(closes, maLong)

	// 2. Volume
	frame.VolMA20 = core.RollingMean(volumes, maShort)
	frame.VolRatio = make([]float64, n)
	for i := range frame.VolRatio {
		frame.VolRatio[i] = core.CalculateVolumeRatio(volumes[i], frame.VolMA20[i])
	}

	// 3. Factors
	frame.PctChange = core.PctChange(closes)
	frame.CorrPV = core.RollingCorr(closes, volumes, factorWindow)
	frame.VWAPDev = vwapDeviation(frame.Bars)
	frame.RSquared = trendLinearity(closes)
	frame.SharpeMom = sharpeMomentum(frame.PctChange)
	frame.BollWidth = bollingerWidth(closes, frame.MA20)

	// 4. Levels from the bars strictly before each row
	frame.Support20 = core.Shift(core.RollingMin(lows, levelWindow), 1)
	frame.Resistance20 = core.Shift(core.RollingMax(highs, levelWindow), 1)
	frame.ClosePos = make([]float64, n)
	for i, b := range frame.Bars {
		frame.ClosePos[i] = core.ClosePosition(b.Close, b.High, b.Low)
	}

	// 5. Oscillators
	frame.K, frame.D = kdj(closes, highs, lows)
	frame.RSI6 = wilderRSI(closes, rsiPeriod)
	frame.DIF, frame.DEA, frame.MACD = macd(closes)
	frame.Resonance = make([]bool, n)
	for i := range frame.Resonance {
		frame.Resonance[i] = frame.K[i] < resonanceKD && frame.D[i] < resonanceKD && frame.RSI6[i] < resonanceRSI
	}
	frame.MACDSignal = macdSignal(frame.MACD)

	return frame
}

// -----------------------------------------------------------------------------

// trueRanges is talib's TRANGE with the first row falling back to high-low.
func trueRanges(bars []models.MBar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	tr := talib.TRange(models.HighSeries(bars), models.LowSeries(bars), models.CloseSeries(bars))
	tr[0] = core.TrueRange(bars[0].High, bars[0].Low, 0, false)
	return tr
}

// vwapDeviation uses amount/volume when the bar carries an amount, else the typical price.
func vwapDeviation(bars []models.MBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		vwap := (b.Open + b.High + b.Low + b.Close) / 4
		if b.Amount > 0 {
			vwap = b.Amount / (b.Volume + core.Epsilon)
		}
		out[i] = (b.Close - vwap) / (vwap + core.Epsilon)
	}
	return out
}

// trendLinearity is the squared rolling correlation of close against the bar index.
func trendLinearity(closes []float64) []float64 {
	index := make([]float64, len(closes))
	for i := range index {
		index[i] = float64(i)
	}

	r := core.RollingCorr(closes, index, factorWindow)
	for i, v := range r {
		r[i] = v * v
	}
	return r
}

func sharpeMomentum(pct []float64) []float64 {
	mean := core.RollingMean(pct, factorWindow)
	std := core.RollingStd(pct, factorWindow)

	out := core.NaNSlice(len(pct))
	for i := range pct {
		switch {
		case math.IsNaN(mean[i]) || math.IsNaN(std[i]):
		case std[i] == 0:
			out[i] = 0
		default:
			out[i] = mean[i] / (std[i] + core.Epsilon)
		}
	}
	return out
}

func bollingerWidth(closes, middle []float64) []float64 {
	std := core.RollingStd(closes, bollWindow)
	out := core.NaNSlice(len(closes))
	for i := range closes {
		if math.IsNaN(std[i]) || math.IsNaN(middle[i]) {
			continue
		}
		upper := middle[i] + bollSigma*std[i]
		lower := middle[i] - bollSigma*std[i]
		out[i] = (upper - lower) / (middle[i] + core.Epsilon)
	}
	return out
}

// -----------------------------------------------------------------------------
// Oscillators
// -----------------------------------------------------------------------------

// kdj smooths RSV(9) twice with center of mass 2.
func kdj(closes, highs, lows []float64) ([]float64, []float64) {
	lowest := core.RollingMin(lows, kdjWindow)
	highest := core.RollingMax(highs, kdjWindow)

	rsv := core.NaNSlice(len(closes))
	for i := range closes {
		if math.IsNaN(lowest[i]) || math.IsNaN(highest[i]) {
			continue
		}
		rsv[i] = (closes[i] - lowest[i]) / (highest[i] - lowest[i] + core.Epsilon) * 100
	}

	alpha := core.ComAlpha(kdjCom)
	k := core.EWM(rsv, alpha)
	d := core.EWM(k, alpha)
	return k, d
}

// wilderRSI seeds the first bar with zero gain and zero loss.
func wilderRSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	alpha := 1.0 / float64(period)
	avgGain := core.EWM(gains, alpha)
	avgLoss := core.EWM(losses, alpha)

	rsi := make([]float64, n)
	for i := range rsi {
		rs := avgGain[i] / (avgLoss[i] + core.Epsilon)
		rsi[i] = 100 - 100/(1+rs)
	}
	return rsi
}

func macd(closes []float64) ([]float64, []float64, []float64) {
	fast := core.EWM(closes, core.SpanAlpha(macdFast))
	slow := core.EWM(closes, core.SpanAlpha(macdSlow))

	dif := make([]float64, len(closes))
	for i := range dif {
		dif[i] = fast[i] - slow[i]
	}
	dea := core.EWM(dif, core.SpanAlpha(macdSignalLen))

	hist := make([]float64, len(closes))
	for i := range hist {
		hist[i] = (dif[i] - dea[i]) * 2
	}
	return dif, dea, hist
}

// macdSignal fires on a zero-line cross up or a positive, rising histogram.
func macdSignal(hist []float64) []bool {
	out := make([]bool, len(hist))
	for i := 1; i < len(hist); i++ {
		crossUp := hist[i] > 0 && hist[i-1] <= 0
		strong := hist[i] > 0 && hist[i] > hist[i-1]
		out[i] = crossUp || strong
	}
	return out
}
