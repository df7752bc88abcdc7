package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"alpha-radar/src/helpers"
	"alpha-radar/src/models"

	"github.com/lib/pq"
)

// Universe tags of the form schema.table.field read symbols from a user table.
var (
	universeRefPattern = regexp.MustCompile(`^(\w+)\.(\w+)\.(\w+)$`)
	identPattern       = regexp.MustCompile(`^\w+$`)
)

// UniverseRef points at the column holding a universe's symbols.
type UniverseRef struct {
	Tag    string
	Schema string
	Table  string
	Field  string
}

func parseUniverseRef(tag string) (UniverseRef, bool) {
	matches := universeRefPattern.FindStringSubmatch(tag)
	if len(matches) != 4 {
		return UniverseRef{}, false
	}
	return UniverseRef{Tag: tag, Schema: matches[1], Table: matches[2], Field: matches[3]}, true
}

// -----------------------------------------------------------------------------

// ResolveUniverseRef loads the referenced symbols, joins names from stock_list and records
// the reference in universe_refs.
func (d *PostgresDB) ResolveUniverseRef(ctx context.Context, ref UniverseRef) ([]models.MStockInfo, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT r.%s::text, COALESCE(l.name, ''), COALESCE(l.market, '')
		FROM %s.%s r
		LEFT JOIN %s l ON l.symbol = r.%s::text
		WHERE r.%s IS NOT NULL AND r.%s::text <> ''
		ORDER BY 1
	`,
		pq.QuoteIdentifier(ref.Field),
		pq.QuoteIdentifier(ref.Schema), pq.QuoteIdentifier(ref.Table),
		d.table("stock_list"), pq.QuoteIdentifier(ref.Field),
		pq.QuoteIdentifier(ref.Field), pq.QuoteIdentifier(ref.Field),
	)

	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("load universe %s", ref.Tag), err)
	}
	defer rows.Close()

	infos, err := scanStockInfos(rows)
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("load universe %s", ref.Tag), err)
	}

	if err := d.RegisterUniverseRef(ctx, ref, len(infos)); err != nil {
		d.Logger.Warning("PostgresDB: failed to register universe %s: %v", ref.Tag, err)
	}
	return infos, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RegisterUniverseRef(ctx context.Context, ref UniverseRef, count int) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (tag, ref_schema, ref_table, ref_field, symbol_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tag) DO UPDATE SET
			symbol_count = EXCLUDED.symbol_count,
			updated_at = EXCLUDED.updated_at
	`, d.table("universe_refs"))

	_, err := d.DB.ExecContext(ctx, query, ref.Tag, ref.Schema, ref.Table, ref.Field, count, time.Now().UTC())
	return err
}
