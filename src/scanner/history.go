package scanner

import (
	"context"
	"errors"
	"strings"

	"alpha-radar/src/helpers"
	"alpha-radar/src/interfaces"
	"alpha-radar/src/models"
)

// ErrUnknownSymbol is returned when the store holds no bars for a symbol.
var ErrUnknownSymbol = errors.New("no bars for symbol")

// EventSource produces the historical event timeline of one series.
type EventSource interface {
	HistoricalEvents(bars []models.MBar) []models.MPatternEvent
}

// HistoryReader serves the per-symbol event timeline to the API and gRPC surfaces.
type HistoryReader struct {
	Bars         interfaces.IBarStore
	Events       EventSource
	LookbackDays int
}

func NewHistoryReader(bars interfaces.IBarStore, events EventSource, lookbackDays int) *HistoryReader {
	return &HistoryReader{Bars: bars, Events: events, LookbackDays: lookbackDays}
}

// History loads the symbol's series and returns its bars with every detector event on them.
func (h *HistoryReader) History(ctx context.Context, symbol string) ([]models.MBar, []models.MPatternEvent, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil, helpers.NewValidationError("symbol is required")
	}

	rows, err := h.Bars.FetchHistoryBatch(ctx, []string{symbol}, h.LookbackDays)
	if err != nil {
		return nil, nil, err
	}

	bars := models.GroupBarsBySymbol(rows)[symbol]
	if len(bars) == 0 {
		return nil, nil, ErrUnknownSymbol
	}
	return bars, h.Events.HistoricalEvents(bars), nil
}
