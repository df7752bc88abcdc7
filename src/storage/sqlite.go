package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"alpha-radar/src/helpers"
	"alpha-radar/src/logger"
	"alpha-radar/src/models"

	_ "modernc.org/sqlite"
)

// SQLite caps bound parameters per statement; symbol batches are split below it.
const sqliteMaxVars = 32000

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	// One writer at a time; readers share the connection under WAL
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables keeps existing data: bars and signals persist across restarts.
func (d *SQLiteDB) createTables() error {
	statements := []struct {
		name  string
		query string
	}{
		{"stock_list", `
			CREATE TABLE IF NOT EXISTS stock_list (
				symbol TEXT PRIMARY KEY,
				name TEXT,
				market TEXT,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);`},
		{"market_data", `
			CREATE TABLE IF NOT EXISTS market_data (
				symbol TEXT,
				date TEXT,
				open REAL,
				high REAL,
				low REAL,
				close REAL,
				volume REAL,
				amount REAL,
				PRIMARY KEY (symbol, date)
			);`},
		{"signals", `
			CREATE TABLE IF NOT EXISTS signals (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				scan_id TEXT,
				symbol TEXT,
				name TEXT,
				signal_date TEXT,
				signal_type TEXT,
				resonant INTEGER,
				price REAL,
				description TEXT,
				score REAL,
				score_desc TEXT,
				stop_price REAL,
				phase TEXT,
				events TEXT,
				created_at TIMESTAMP
			);`},
		{"signals_date_idx", `CREATE INDEX IF NOT EXISTS signals_date_idx ON signals (signal_date);`},
	}

	for _, s := range statements {
		if _, err := d.DB.Exec(s.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// IBarStore
// -----------------------------------------------------------------------------

func (d *SQLiteDB) FetchSymbolUniverse(ctx context.Context, universeTag string) ([]models.MStockInfo, error) {
	query := `SELECT symbol, COALESCE(name, ''), COALESCE(market, '') FROM stock_list`
	var args []any
	if !isWholeUniverse(universeTag) {
		query += ` WHERE market = ?`
		args = append(args, universeTag)
	}
	query += ` ORDER BY symbol`

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helpers.NewDatabaseError("fetch universe", err)
	}
	defer rows.Close()

	return scanStockInfos(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) FetchHistoryBatch(ctx context.Context, symbols []string, lookbackDays int) ([]models.MBar, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	var out []models.MBar
	for start := 0; start < len(symbols); start += sqliteMaxVars {
		chunk := symbols[start:min(start+sqliteMaxVars, len(symbols))]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := fmt.Sprintf(`
			SELECT symbol, date, open, high, low, close, volume, amount
			FROM market_data
			WHERE symbol IN (%s)
			  AND date >= date((SELECT MAX(date) FROM market_data), ?)
			ORDER BY symbol, date
		`, placeholders)

		args := make([]any, 0, len(chunk)+1)
		for _, s := range chunk {
			args = append(args, s)
		}
		args = append(args, fmt.Sprintf("-%d days", lookbackDays))

		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, helpers.NewDatabaseError("fetch history batch", err)
		}
		bars, err := scanBars(rows)
		rows.Close()
		if err != nil {
			return nil, helpers.NewDatabaseError("fetch history batch", err)
		}
		out = append(out, bars...)
	}

	return out, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveBarsBulk(ctx context.Context, bars []models.MBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO market_data (symbol, date, open, high, low, close, volume, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, b.Symbol, b.Date.Format(dateLayout), b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount)
		if err != nil {
			return helpers.NewDatabaseError("save bars", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveUniverse(ctx context.Context, infos []models.MStockInfo) error {
	if len(infos) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_list (symbol, name, market, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			market = excluded.market,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, info := range infos {
		if _, err := stmt.ExecContext(ctx, info.Symbol, info.Name, info.Market, now); err != nil {
			return helpers.NewDatabaseError("save universe", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------
// ISignalStore
// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveSignalsBatch(ctx context.Context, signals []models.MSignal) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Supersede earlier runs of the same day(s)
	for _, day := range signalDays(signals, time.Now()) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM signals WHERE signal_date = ?`, day); err != nil {
			return helpers.NewDatabaseError("save signals", err)
		}
	}

	// 2. Insert the new run
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (scan_id, symbol, name, signal_date, signal_type, resonant, price,
			description, score, score_desc, stop_price, phase, events, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range signals {
		_, err := stmt.ExecContext(ctx, s.ScanID, s.Symbol, s.Name, s.Timestamp.Format(dateLayout), string(s.Type),
			s.Resonant, s.Price, s.Info, s.Score, s.ScoreDesc, s.StopPrice, s.Phase, joinEvents(s.Events), s.Timestamp.UTC())
		if err != nil {
			return helpers.NewDatabaseError("save signals", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) LatestSignals(ctx context.Context, limit int) ([]models.MSignal, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT scan_id, symbol, name, signal_type, resonant, price, description, score,
			score_desc, stop_price, phase, events, created_at
		FROM signals
		WHERE signal_date = (SELECT MAX(signal_date) FROM signals)
		ORDER BY score DESC, symbol
		LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, helpers.NewDatabaseError("latest signals", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
