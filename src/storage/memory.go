package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"alpha-radar/src/models"
)

// MemoryStore keeps bars and signals in process. It backs db_type "memory" and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	universe map[string]models.MStockInfo
	bars     map[string]map[string]models.MBar // symbol -> date -> bar
	signals  map[string][]models.MSignal       // day -> signals
	Now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		universe: make(map[string]models.MStockInfo),
		bars:     make(map[string]map[string]models.MBar),
		signals:  make(map[string][]models.MSignal),
		Now:      time.Now,
	}
}

func (m *MemoryStore) Initialize() error { return nil }
func (m *MemoryStore) Close() error      { return nil }

// -----------------------------------------------------------------------------
// IBarStore
// -----------------------------------------------------------------------------

func (m *MemoryStore) FetchSymbolUniverse(ctx context.Context, universeTag string) ([]models.MStockInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.MStockInfo, 0, len(m.universe))
	for _, info := range m.universe {
		if isWholeUniverse(universeTag) || info.Market == universeTag {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryStore) FetchHistoryBatch(ctx context.Context, symbols []string, lookbackDays int) ([]models.MBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Lookback counts from the newest bar in the store
	var newest time.Time
	for _, byDate := range m.bars {
		for _, b := range byDate {
			if b.Date.After(newest) {
				newest = b.Date
			}
		}
	}
	cutoff := newest.AddDate(0, 0, -lookbackDays)

	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	var out []models.MBar
	for _, sym := range sorted {
		var series []models.MBar
		for _, b := range m.bars[sym] {
			if !b.Date.Before(cutoff) {
				series = append(series, b)
			}
		}
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		out = append(out, series...)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryStore) SaveBarsBulk(ctx context.Context, bars []models.MBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range bars {
		byDate, ok := m.bars[b.Symbol]
		if !ok {
			byDate = make(map[string]models.MBar)
			m.bars[b.Symbol] = byDate
		}
		byDate[b.Date.Format(dateLayout)] = b
	}
	return nil
}

func (m *MemoryStore) SaveUniverse(ctx context.Context, infos []models.MStockInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, info := range infos {
		m.universe[info.Symbol] = info
	}
	return nil
}

// -----------------------------------------------------------------------------
// ISignalStore
// -----------------------------------------------------------------------------

func (m *MemoryStore) SaveSignalsBatch(ctx context.Context, signals []models.MSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, day := range signalDays(signals, m.Now()) {
		delete(m.signals, day)
	}
	for _, s := range signals {
		day := s.Timestamp.Format(dateLayout)
		m.signals[day] = append(m.signals[day], s)
	}
	return nil
}

func (m *MemoryStore) LatestSignals(ctx context.Context, limit int) ([]models.MSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := ""
	for day := range m.signals {
		if day > latest {
			latest = day
		}
	}

	out := append([]models.MSignal(nil), m.signals[latest]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	if n := normalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
