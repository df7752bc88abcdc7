package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"alpha-radar/src/analysis/core"
	"alpha-radar/src/helpers"
	"alpha-radar/src/models"
)

// Recent bars averaged for the liquidity check
const liquidityBars = 5

var (
	// Main boards of Shenzhen (00), ChiNext (30), Shanghai (60) and STAR (68)
	boardPattern = regexp.MustCompile(`^(00|30|60|68)\d{4}$`)
	ghostNames   = map[string]bool{"": true, "nan": true, "None": true}
)

// -----------------------------------------------------------------------------

// CheckQuality rejects series that are too short, suspended on the last bar or illiquid.
// A zero threshold disables the corresponding check.
func CheckQuality(symbol string, bars []models.MBar, cfg models.MQualityConfig) error {
	if len(bars) == 0 {
		return helpers.NewDataQualityError(symbol, "no bars")
	}

	// 1. Newly listed
	if cfg.MinBars > 0 && len(bars) < cfg.MinBars {
		return helpers.NewDataQualityError(symbol, fmt.Sprintf("%d bars < %d", len(bars), cfg.MinBars))
	}

	// 2. Suspended
	if bars[len(bars)-1].Volume <= 0 {
		return helpers.NewDataQualityError(symbol, "no volume on last bar")
	}

	// 3. Liquidity
	if cfg.MinAvgAmount > 0 {
		recent := bars[max(0, len(bars)-liquidityBars):]
		amounts := make([]float64, len(recent))
		for i, b := range recent {
			amounts[i] = b.Amount
		}
		avg := core.CalculateMean(amounts)
		if math.IsNaN(avg) || avg < cfg.MinAvgAmount {
			return helpers.NewDataQualityError(symbol, fmt.Sprintf("average amount %.0f < %.0f", avg, cfg.MinAvgAmount))
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// FilterUniverse drops unnamed, special-treatment, delisting and off-board symbols.
func FilterUniverse(infos []models.MStockInfo) []models.MStockInfo {
	out := make([]models.MStockInfo, 0, len(infos))
	for _, info := range infos {
		name := strings.TrimSpace(info.Name)
		if ghostNames[name] {
			continue
		}
		if strings.Contains(strings.ToUpper(name), "ST") || strings.Contains(name, "退") {
			continue
		}
		if !boardPattern.MatchString(info.Symbol) {
			continue
		}
		out = append(out, info)
	}
	return out
}
