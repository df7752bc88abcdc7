package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// DefaultMarket is the calendar used when none is configured.
const DefaultMarket = "xshg"

// TradingCalendar decides trading days using scmhub/calendar.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// MarketForSymbol maps an A-share code to its exchange MIC.
func MarketForSymbol(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "60"), strings.HasPrefix(symbol, "68"):
		return "xshg"
	case strings.HasPrefix(symbol, "00"), strings.HasPrefix(symbol, "30"):
		return "xshe"
	}
	return DefaultMarket
}

// -----------------------------------------------------------------------------

// GetCalendar loads the calendar for a MIC code (ISO 10383, e.g. "xshg").
func GetCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = DefaultMarket
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s'. Using simple fallback (Mon-Fri, Asia/Shanghai).", mic)
		loc, err := time.LoadLocation("Asia/Shanghai")
		if err != nil {
			loc = time.FixedZone("CST", 8*3600)
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: loc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		// 9:30 - 11:30 and 13:00 - 15:00 local time
		minutes := t.Hour()*60 + t.Minute()
		return (minutes >= 9*60+30 && minutes < 11*60+30) || (minutes >= 13*60 && minutes < 15*60)
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// LastTradingDay returns the latest trading day on or before t, as a local midnight.
// It gives up after a month of closures and returns t's own day.
func (tc *TradingCalendar) LastTradingDay(t time.Time) time.Time {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	for i := 0; i < 31; i++ {
		candidate := day.AddDate(0, 0, -i)
		if tc.IsTradingDay(candidate) {
			return candidate
		}
	}
	return day
}
