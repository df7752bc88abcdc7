package interfaces

import (
	"context"

	"alpha-radar/src/models"
)

// -----------------------------------------------------------------------------
// IBarStore provides the daily bars and the symbol universe a scan reads.
// -----------------------------------------------------------------------------

type IBarStore interface {

	// FetchSymbolUniverse lists the symbols behind a universe tag ("" or "all" for everything).
	FetchSymbolUniverse(ctx context.Context, universeTag string) ([]models.MStockInfo, error)

	// -----------------------------------------------------------------------------

	// FetchHistoryBatch returns long-format bars for the symbols, ordered by symbol then date.
	// lookbackDays counts back from the newest bar in the store.
	FetchHistoryBatch(ctx context.Context, symbols []string, lookbackDays int) ([]models.MBar, error)

	// -----------------------------------------------------------------------------

	// SaveBarsBulk upserts bars keyed by (symbol, date).
	SaveBarsBulk(ctx context.Context, bars []models.MBar) error

	// -----------------------------------------------------------------------------

	// SaveUniverse upserts symbol names and markets.
	SaveUniverse(ctx context.Context, infos []models.MStockInfo) error
}

// -----------------------------------------------------------------------------
// ISignalStore persists scan output.
// -----------------------------------------------------------------------------

type ISignalStore interface {

	// SaveSignalsBatch replaces the signals of the batch's calendar day in one transaction.
	// An empty batch clears today's signals.
	SaveSignalsBatch(ctx context.Context, signals []models.MSignal) error

	// -----------------------------------------------------------------------------

	// LatestSignals returns the most recent day's signals, best score first.
	LatestSignals(ctx context.Context, limit int) ([]models.MSignal, error)
}

// -----------------------------------------------------------------------------
// IDatabase defines the contract for a storage backend.
// -----------------------------------------------------------------------------

type IDatabase interface {
	IBarStore
	ISignalStore

	// Initialize sets up the database schema and tables.
	Initialize() error

	// Close the database connection
	Close() error
}
