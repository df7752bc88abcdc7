package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alpha-radar/src/logger"
)

// ScanFunc starts one scan of a universe and blocks until it is terminal.
type ScanFunc func(ctx context.Context, universeTag string) error

// ScanScheduler runs one scan per trading day once the local clock passes RunAt.
type ScanScheduler struct {
	Calendar    *TradingCalendar
	UniverseTag string
	Scan        ScanFunc
	Logger      *logger.Logger
	Interval    time.Duration
	Now         func() time.Time

	runHour   int
	runMinute int

	mu      sync.Mutex
	lastRun string // local date of the last started scan
}

// -----------------------------------------------------------------------------

// NewScanScheduler parses runAt as HH:MM in the market's local time.
func NewScanScheduler(cal *TradingCalendar, runAt, universeTag string, scan ScanFunc, l *logger.Logger) (*ScanScheduler, error) {
	at, err := time.Parse("15:04", runAt)
	if err != nil {
		return nil, fmt.Errorf("invalid run_at %q: %w", runAt, err)
	}

	return &ScanScheduler{
		Calendar:    cal,
		UniverseTag: universeTag,
		Scan:        scan,
		Logger:      l,
		Interval:    time.Minute,
		Now:         time.Now,
		runHour:     at.Hour(),
		runMinute:   at.Minute(),
	}, nil
}

// -----------------------------------------------------------------------------

// Due reports whether a scan should start at now.
func (s *ScanScheduler) Due(now time.Time) bool {
	local := now.In(s.Calendar.Timezone)
	if !s.Calendar.IsTradingDay(local) {
		return false
	}

	if local.Hour()*60+local.Minute() < s.runHour*60+s.runMinute {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun != local.Format("2006-01-02")
}

// Tick starts the day's scan when it is due. It reports whether a scan ran.
// A failed scan is not retried the same day.
func (s *ScanScheduler) Tick(ctx context.Context) bool {
	now := s.Now()
	if !s.Due(now) {
		return false
	}

	day := now.In(s.Calendar.Timezone).Format("2006-01-02")
	s.mu.Lock()
	s.lastRun = day
	s.mu.Unlock()

	s.Logger.Info("Scheduled scan for %s (%s, universe %q)", day, s.Calendar.MIC, s.UniverseTag)
	if err := s.Scan(ctx, s.UniverseTag); err != nil {
		s.Logger.Error("Scheduled scan for %s failed: %v", day, err)
	}
	return true
}

// -----------------------------------------------------------------------------

// Run checks the schedule every Interval until ctx is done.
func (s *ScanScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Info("Scan scheduler started: %02d:%02d on %s trading days", s.runHour, s.runMinute, s.Calendar.MIC)
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Scan scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
