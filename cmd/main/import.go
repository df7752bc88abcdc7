package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"alpha-radar/src/interfaces"
	"alpha-radar/src/logger"
	"alpha-radar/src/models"
	"alpha-radar/src/utils"
)

const importChunk = 5000

var importColumns = []string{"symbol", "name", "date", "open", "high", "low", "close", "volume", "amount"}

// exchange tags stored in the universe, keyed by MIC
var marketTags = map[string]string{"xshg": "SH", "xshe": "SZ"}

// -----------------------------------------------------------------------------

// runImport loads a daily bar CSV into the bar store.
func runImport(ctx context.Context, path string, db interfaces.IBarStore, appLogger *logger.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	infos, bars, err := readBarsCSV(f)
	if err != nil {
		return err
	}

	if err := db.SaveUniverse(ctx, infos); err != nil {
		return err
	}
	for start := 0; start < len(bars); start += importChunk {
		if err := db.SaveBarsBulk(ctx, bars[start:min(start+importChunk, len(bars))]); err != nil {
			return err
		}
	}

	appLogger.Info("Imported %d bars for %d symbols from %s", len(bars), len(infos), path)
	return nil
}

// -----------------------------------------------------------------------------

// readBarsCSV parses rows in importColumns order after a header line. An empty
// amount cell is stored as unknown (0).
func readBarsCSV(r io.Reader) ([]models.MStockInfo, []models.MBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(importColumns)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range importColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, nil, fmt.Errorf("column %d must be %q, got %q", i+1, col, header[i])
		}
	}

	seen := make(map[string]int)
	var infos []models.MStockInfo
	var bars []models.MBar

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := reader.FieldPos(0)

		bar, err := parseBarRecord(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)

		// Last non-empty name wins
		name := strings.TrimSpace(rec[1])
		if idx, ok := seen[bar.Symbol]; ok {
			if name != "" {
				infos[idx].Name = name
			}
			continue
		}
		seen[bar.Symbol] = len(infos)
		infos = append(infos, models.MStockInfo{
			Symbol: bar.Symbol,
			Name:   name,
			Market: marketTags[utils.MarketForSymbol(bar.Symbol)],
		})
	}

	return infos, bars, nil
}

func parseBarRecord(rec []string) (models.MBar, error) {
	symbol := strings.TrimSpace(rec[0])
	if symbol == "" {
		return models.MBar{}, errors.New("empty symbol")
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[2]))
	if err != nil {
		return models.MBar{}, fmt.Errorf("bad date: %w", err)
	}

	var values [6]float64
	for i := range values {
		raw := strings.TrimSpace(rec[3+i])
		if raw == "" && i == 5 {
			continue
		}
		if values[i], err = strconv.ParseFloat(raw, 64); err != nil {
			return models.MBar{}, fmt.Errorf("bad %s: %w", importColumns[3+i], err)
		}
	}

	return models.MBar{
		Symbol: symbol,
		Date:   date,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
		Amount: values[5],
	}, nil
}
