package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"alpha-radar/src/helpers"
	"alpha-radar/src/logger"
	"alpha-radar/src/models"

	"github.com/lib/pq"
)

const defaultSchema = "alpha_radar"

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	schema := cfg.Storage.Schema
	if schema == "" {
		schema = defaultSchema
	}
	if !identPattern.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}

	return &PostgresDB{
		Config: cfg,
		Schema: schema,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// table returns the schema-qualified, quoted table name.
func (d *PostgresDB) table(name string) string {
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier(name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	statements := []struct {
		name  string
		query string
	}{
		{"stock_list", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				symbol TEXT PRIMARY KEY,
				name TEXT,
				market TEXT,
				updated_at TIMESTAMPTZ DEFAULT now()
			);`, d.table("stock_list"))},
		{"market_data", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				symbol TEXT,
				date DATE,
				open DOUBLE PRECISION,
				high DOUBLE PRECISION,
				low DOUBLE PRECISION,
				close DOUBLE PRECISION,
				volume DOUBLE PRECISION,
				amount DOUBLE PRECISION,
				PRIMARY KEY (symbol, date)
			);`, d.table("market_data"))},
		{"signals", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				scan_id TEXT,
				symbol TEXT,
				name TEXT,
				signal_date DATE,
				signal_type TEXT,
				resonant BOOLEAN,
				price DOUBLE PRECISION,
				description TEXT,
				score DOUBLE PRECISION,
				score_desc TEXT,
				stop_price DOUBLE PRECISION,
				phase TEXT,
				events TEXT,
				created_at TIMESTAMPTZ
			);`, d.table("signals"))},
		{"universe_refs", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				tag TEXT PRIMARY KEY,
				ref_schema TEXT,
				ref_table TEXT,
				ref_field TEXT,
				symbol_count INTEGER,
				updated_at TIMESTAMPTZ DEFAULT now()
			);`, d.table("universe_refs"))},
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

func (d *PostgresDB) FetchSymbolUniverse(ctx context.Context, universeTag string) ([]models.MStockInfo, error) {
	// schema.table.field tags load symbols from a reference table
	if ref, ok := parseUniverseRef(universeTag); ok {
		return d.ResolveUniverseRef(ctx, ref)
	}

	query := fmt.Sprintf(`SELECT symbol, COALESCE(name, ''), COALESCE(market, '') FROM %s`, d.table("stock_list"))
	var args []any
	if !isWholeUniverse(universeTag) {
		query += ` WHERE market = $1`
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

func (d *PostgresDB) FetchHistoryBatch(ctx context.Context, symbols []string, lookbackDays int) ([]models.MBar, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	table := d.table("market_data")
	query := fmt.Sprintf(`
		SELECT symbol, to_char(date, 'YYYY-MM-DD'), open, high, low, close, volume, amount
		FROM %s
		WHERE symbol = ANY($1)
		  AND date >= (SELECT MAX(date) FROM %s) - $2::int
		ORDER BY symbol, date
	`, table, table)

	rows, err := d.DB.QueryContext(ctx, query, pq.Array(symbols), lookbackDays)
	if err != nil {
		return nil, helpers.NewDatabaseError("fetch history batch", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, helpers.NewDatabaseError("fetch history batch", err)
	}
	return bars, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveBarsBulk(ctx context.Context, bars []models.MBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (symbol, date, open, high, low, close, volume, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount
	`, d.table("market_data"))
	stmt, err := tx.PrepareContext(ctx, query)
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

func (d *PostgresDB) SaveUniverse(ctx context.Context, infos []models.MStockInfo) error {
	if len(infos) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (symbol, name, market, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			market = EXCLUDED.market,
			updated_at = EXCLUDED.updated_at
	`, d.table("stock_list"))
	stmt, err := tx.PrepareContext(ctx, query)
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

func (d *PostgresDB) SaveSignalsBatch(ctx context.Context, signals []models.MSignal) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	table := d.table("signals")

	// 1. Supersede earlier runs of the same day(s)
	days := signalDays(signals, time.Now())
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE signal_date = ANY($1::date[])`, table), pq.Array(days)); err != nil {
		return helpers.NewDatabaseError("save signals", err)
	}

	// 2. Insert the new run
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (scan_id, symbol, name, signal_date, signal_type, resonant, price,
			description, score, score_desc, stop_price, phase, events, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, table))
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

func (d *PostgresDB) LatestSignals(ctx context.Context, limit int) ([]models.MSignal, error) {
	table := d.table("signals")
	query := fmt.Sprintf(`
		SELECT scan_id, symbol, name, signal_type, resonant, price, description, score,
			score_desc, stop_price, phase, events, created_at
		FROM %s
		WHERE signal_date = (SELECT MAX(signal_date) FROM %s)
		ORDER BY score DESC, symbol
		LIMIT $1
	`, table, table)

	rows, err := d.DB.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, helpers.NewDatabaseError("latest signals", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
