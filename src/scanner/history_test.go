package scanner

import (
	"context"
	"errors"
	"testing"

	"alpha-radar/src/helpers"
	"alpha-radar/src/models"
)

type stubEvents struct{ seen int }

func (s *stubEvents) HistoricalEvents(bars []models.MBar) []models.MPatternEvent {
	s.seen = len(bars)
	return []models.MPatternEvent{{Pattern: "VCP", Index: len(bars) - 1}}
}

func TestHistoryReader(t *testing.T) {
	store := seededStore(t, 2)
	events := &stubEvents{}
	h := NewHistoryReader(store, events, 365)
	ctx := context.Background()

	bars, got, err := h.History(ctx, " 600001 ")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(bars) != 3 || events.seen != 3 || len(got) != 1 || got[0].Index != 2 {
		t.Fatalf("bars %d, seen %d, events %+v", len(bars), events.seen, got)
	}

	var verr *helpers.ValidationError
	if _, _, err := h.History(ctx, ""); !errors.As(err, &verr) {
		t.Fatalf("empty symbol error = %v", err)
	}
	if _, _, err := h.History(ctx, "999999"); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("unknown symbol error = %v", err)
	}
}
