package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"alpha-radar/src/interfaces"
	"alpha-radar/src/logger"
	"alpha-radar/src/models"
)

const (
	dateLayout       = "2006-01-02"
	eventSeparator   = "|"
	defaultSignalCap = 500
)

// -----------------------------------------------------------------------------

// NewDatabase builds the backend selected by storage.db_type. It is not initialized.
func NewDatabase(cfg *models.MConfig) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresDB(cfg, logger.NewLogger(cfg, "PostgresDB"))
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		return NewSQLiteDB(cfg, logger.NewLogger(cfg, "SQLiteDB"))
	}
	return nil, fmt.Errorf("unknown db type %q", cfg.Storage.DBType)
}

// -----------------------------------------------------------------------------

func isWholeUniverse(tag string) bool {
	return tag == "" || strings.EqualFold(tag, "all")
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultSignalCap
	}
	return limit
}

// signalDays lists the distinct calendar days a batch belongs to; an empty batch is today.
func signalDays(signals []models.MSignal, now time.Time) []string {
	if len(signals) == 0 {
		return []string{now.Format(dateLayout)}
	}

	seen := make(map[string]bool)
	var days []string
	for _, s := range signals {
		day := s.Timestamp.Format(dateLayout)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days
}

func joinEvents(events []string) string {
	return strings.Join(events, eventSeparator)
}

func splitEvents(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, eventSeparator)
}

// -----------------------------------------------------------------------------
// Row scanners shared by the SQL backends
// -----------------------------------------------------------------------------

func scanStockInfos(rows *sql.Rows) ([]models.MStockInfo, error) {
	var out []models.MStockInfo
	for rows.Next() {
		var info models.MStockInfo
		if err := rows.Scan(&info.Symbol, &info.Name, &info.Market); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// scanBars expects symbol, date (YYYY-MM-DD text), open, high, low, close, volume, amount.
func scanBars(rows *sql.Rows) ([]models.MBar, error) {
	var out []models.MBar
	for rows.Next() {
		var b models.MBar
		var date string
		var amount sql.NullFloat64
		if err := rows.Scan(&b.Symbol, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &amount); err != nil {
			return nil, err
		}

		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("bad bar date %q for %s: %w", date, b.Symbol, err)
		}
		b.Date = parsed
		b.Amount = amount.Float64
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanSignals(rows *sql.Rows) ([]models.MSignal, error) {
	var out []models.MSignal
	for rows.Next() {
		var s models.MSignal
		var signalType, events string
		if err := rows.Scan(&s.ScanID, &s.Symbol, &s.Name, &signalType, &s.Resonant, &s.Price, &s.Info,
			&s.Score, &s.ScoreDesc, &s.StopPrice, &s.Phase, &events, &s.Timestamp); err != nil {
			return nil, err
		}
		s.Type = models.SignalType(signalType)
		s.Events = splitEvents(events)
		out = append(out, s)
	}
	return out, rows.Err()
}
