package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"alpha-radar/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// signalView adds the display tag to a signal.
type signalView struct {
	models.MSignal
	DisplayType string `json:"display_type"`
}

func signalViews(signals []models.MSignal) []signalView {
	out := make([]signalView, len(signals))
	for i, sig := range signals {
		out[i] = signalView{MSignal: sig, DisplayType: sig.DisplayType()}
	}
	return out
}

// -----------------------------------------------------------------------------

func queryTypes(raw []string) (map[models.SignalType]bool, error) {
	types := make(map[models.SignalType]bool, len(raw))
	for _, r := range raw {
		t := models.SignalType(r)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown signal type %q", r)
		}
		types[t] = true
	}
	return types, nil
}

func filterSignals(signals []models.MSignal, types map[models.SignalType]bool) []models.MSignal {
	if len(types) == 0 {
		return signals
	}
	var out []models.MSignal
	for _, s := range signals {
		if types[s.Type] {
			out = append(out, s)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", key)
	}
	return v, nil
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": code, "error": msg})
}
