package risk

import "math"

// Position sizing bounds
const (
	MaxKellyPosition = 0.95
	StopATRDistance  = 2.0
	LotSize          = 100
)

// KellyFraction returns the fractional Kelly position p - q/b, clamped to [0, 0.95].
// A non-positive payoff ratio means no trade.
func KellyFraction(winRate, payoffRatio, fraction float64) float64 {
	if payoffRatio <= 0 {
		return 0
	}

	q := 1 - winRate
	f := (winRate - q/payoffRatio) * fraction
	return math.Max(0, math.Min(MaxKellyPosition, f))
}

// DynamicStop places the stop mult ATRs below the entry.
func DynamicStop(entry, atr, mult float64) float64 {
	return entry - atr*mult
}

// VolatilityAdjustedSize sizes a position so a 2-ATR adverse move loses at most
// riskPerTrade of the account. Shares are rounded down to whole lots.
func VolatilityAdjustedSize(account, atr, riskPerTrade float64) int {
	if atr <= 0 || account <= 0 || riskPerTrade <= 0 {
		return 0
	}

	shares := account * riskPerTrade / (StopATRDistance * atr)
	return int(shares/LotSize) * LotSize
}
