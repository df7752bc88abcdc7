package models

import (
	"sort"
	"time"
)

// MBar is one daily OHLCV row of a symbol.
// Amount <= 0 means the traded amount is unknown for that bar.
type MBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"`
}

// MStockInfo is one entry of the symbol universe.
type MStockInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market string `json:"market"`
}

// -----------------------------------------------------------------------------

// GroupBarsBySymbol splits a long-format row set into per-symbol series sorted by date.
// Each returned slice is freshly allocated and owned by the caller.
func GroupBarsBySymbol(rows []MBar) map[string][]MBar {
	grouped := make(map[string][]MBar)
	for _, r := range rows {
		grouped[r.Symbol] = append(grouped[r.Symbol], r)
	}

	for _, series := range grouped {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
	}
	return grouped
}

// CloseSeries extracts closes.
func CloseSeries(bars []MBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// VolumeSeries extracts volumes.
func VolumeSeries(bars []MBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// HighSeries extracts highs.
func HighSeries(bars []MBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// LowSeries extracts lows.
func LowSeries(bars []MBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
