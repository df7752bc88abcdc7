package models

import "time"

// SignalType is the closed set of signal tags.
type SignalType string

const (
	SignalWBottom     SignalType = "W-Bottom"
	SignalTriangle    SignalType = "Triangle"
	SignalVCP         SignalType = "VCP"
	SignalResonance   SignalType = "Resonance"
	SignalMACDCross   SignalType = "MACD-Cross"
	SignalMultiSignal SignalType = "Multi-Signal"
	SignalHighScore   SignalType = "High-Score"
)

// ResonanceMarker prefixes the display form of resonant signals.
const ResonanceMarker = "🔥 "

// AllSignalTypes lists every tag in reporting order.
var AllSignalTypes = []SignalType{
	SignalWBottom,
	SignalTriangle,
	SignalVCP,
	SignalResonance,
	SignalMACDCross,
	SignalMultiSignal,
	SignalHighScore,
}

// Valid reports whether t belongs to the closed tag set.
func (t SignalType) Valid() bool {
	for _, known := range AllSignalTypes {
		if t == known {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// MScore is the composite strength score with its breakdown.
type MScore struct {
	Value     float64 `json:"value"`
	Trend     float64 `json:"trend"`
	PV        float64 `json:"pv"`
	Momentum  float64 `json:"momentum"`
	ScoreDesc string  `json:"score_desc"`
}

// MSignal is the reportable output for one symbol in one scan pass.
type MSignal struct {
	ScanID    string     `json:"scan_id"`
	Symbol    string     `json:"symbol"`
	Name      string     `json:"name"`
	Type      SignalType `json:"type"`
	Resonant  bool       `json:"resonant"`
	Price     float64    `json:"price"`
	Info      string     `json:"info"`
	Score     float64    `json:"score"`
	ScoreDesc string     `json:"score_desc"`
	StopPrice float64    `json:"stop_price"`
	Phase     string     `json:"phase"`
	Events    []string   `json:"events,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// DisplayType returns the tag with the resonance marker when applicable.
func (s MSignal) DisplayType() string {
	if s.Resonant {
		return ResonanceMarker + string(s.Type)
	}
	return string(s.Type)
}
