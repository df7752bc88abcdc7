package analysis

import (
	"sort"

	"alpha-radar/src/analysis/patterns"
	"alpha-radar/src/logger"
	"alpha-radar/src/models"
)

// AnalysisFacade runs the per-symbol pipeline: quality gate, indicators, detectors,
// score and reporting policy.
type AnalysisFacade struct {
	Config     *models.MConfig
	Aggregator *SignalAggregator
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{
		Config:     cfg,
		Aggregator: NewSignalAggregator(cfg),
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// AnalyzeSymbol evaluates the final bar of one symbol and returns zero or one signal.
// It holds no state between calls and is safe to run from many workers at once.
func (a *AnalysisFacade) AnalyzeSymbol(symbol, name string, bars []models.MBar) []models.MSignal {
	// 1. Quality gate
	if err := CheckQuality(symbol, bars, a.Config.Quality); err != nil {
		a.Logger.Debug("%v", err)
		return nil
	}

	// 2. Indicators and last-bar detectors
	frame := ComputeIndicators(bars)
	flags := patterns.Detect(frame, patterns.ScanMode, a.Config.Patterns)

	// 3. Score and policy
	signal := a.Aggregator.Evaluate(symbol, name, frame, flags)
	if signal == nil {
		return nil
	}
	return []models.MSignal{*signal}
}

// -----------------------------------------------------------------------------

// HistoricalEvents returns every detector hit across the whole series in chronological order.
// Double bottoms come from the pairwise trough search; the other detectors are read per bar.
func (a *AnalysisFacade) HistoricalEvents(bars []models.MBar) []models.MPatternEvent {
	if len(bars) == 0 {
		return nil
	}

	frame := ComputeIndicators(bars)
	flags, events := patterns.DetectHistory(frame, a.Config.Patterns)

	columns := []struct {
		name   models.SignalType
		info   string
		values []bool
	}{
		{models.SignalTriangle, "Converging triangle breakout", flags.Triangle},
		{models.SignalVCP, "Volatility contraction breakout", flags.VCP},
		{models.SignalResonance, "KDJ+RSI oversold resonance", flags.Resonance},
		{models.SignalMACDCross, "MACD cross/bullish", flags.MACDCross},
	}

	for i, bar := range frame.Bars {
		for _, c := range columns {
			if c.values[i] {
				events = append(events, newEvent(string(c.name), i, bar, c.info))
			}
		}
		for _, name := range patterns.WyckoffEvents(flags, i) {
			events = append(events, newEvent(name, i, bar, "Wyckoff "+name))
		}
	}

	sort.SliceStable(events, func(x, y int) bool {
		return events[x].Index < events[y].Index
	})
	return events
}

func newEvent(pattern string, index int, bar models.MBar, info string) models.MPatternEvent {
	return models.MPatternEvent{
		Pattern: pattern,
		Index:   index,
		Date:    bar.Date.Format("2006-01-02"),
		Price:   bar.Close,
		Info:    info,
	}
}
