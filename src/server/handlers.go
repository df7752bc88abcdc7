package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"alpha-radar/src/cache"
	"alpha-radar/src/helpers"
	"alpha-radar/src/models"
	"alpha-radar/src/risk"
	"alpha-radar/src/scanner"

	"github.com/gin-gonic/gin"
)

const (
	defaultSignalLimit = 100
	maxSignalLimit     = 500
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.connections.Load(),
		"scan_state":  s.Scans.Status().State,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getScanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Scans.Status())
}

// -----------------------------------------------------------------------------

// getSignals serves the latest day's signals, from the cache when it has them.
// Query: limit (1..500, default 100), type (repeatable signal tag filter).
func (s *APIServer) getSignals(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultSignalLimit)
	if err != nil || limit < 1 || limit > maxSignalLimit {
		badRequest(c, "INVALID_LIMIT", "limit must be between 1 and 500")
		return
	}

	types, err := queryTypes(c.QueryArray("type"))
	if err != nil {
		badRequest(c, "INVALID_TYPE", err.Error())
		return
	}

	ctx := c.Request.Context()
	source := "cache"
	signals, err := s.cachedSignals(c)
	if err != nil {
		source = "store"
		signals, err = s.Signals.LatestSignals(ctx, maxSignalLimit)
		if err != nil {
			s.Logger.Error("Failed to load signals: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": "STORE_ERROR", "error": "failed to load signals"})
			return
		}
	}

	signals = filterSignals(signals, types)
	if len(signals) > limit {
		signals = signals[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"source":  source,
		"count":   len(signals),
		"signals": signalViews(signals),
	})
}

func (s *APIServer) cachedSignals(c *gin.Context) ([]models.MSignal, error) {
	if s.Cache == nil {
		return nil, cache.ErrCacheMiss
	}
	signals, err := s.Cache.Latest(c.Request.Context())
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.Logger.Warning("Signal cache unavailable, falling back to store: %v", err)
	}
	return signals, err
}

// -----------------------------------------------------------------------------

func (s *APIServer) startScan(c *gin.Context) {
	var req struct {
		Universe string `json:"universe"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
			return
		}
	}
	universe := strings.TrimSpace(req.Universe)
	if universe == "" {
		universe = "all"
	}

	// The run outlives the request
	if err := s.Scans.Start(context.WithoutCancel(c.Request.Context()), universe); err != nil {
		if errors.Is(err, scanner.ErrScanInProgress) {
			c.JSON(http.StatusConflict, gin.H{"code": "SCAN_IN_PROGRESS", "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "SCAN_START_FAILED", "error": err.Error()})
		return
	}

	operator, _ := c.Get(operatorContextKey)
	s.Logger.Info("Scan of %q started via API (operator: %v)", universe, operator)
	c.JSON(http.StatusAccepted, gin.H{"started": true, "universe": universe})
}

// -----------------------------------------------------------------------------

func (s *APIServer) stopScan(c *gin.Context) {
	s.Scans.Stop()
	c.JSON(http.StatusAccepted, s.Scans.Status())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	bars, events, err := s.History.History(c.Request.Context(), symbol)
	if err != nil {
		var verr *helpers.ValidationError
		switch {
		case errors.As(err, &verr):
			badRequest(c, "INVALID_SYMBOL", err.Error())
		case errors.Is(err, scanner.ErrUnknownSymbol):
			c.JSON(http.StatusNotFound, gin.H{"code": "UNKNOWN_SYMBOL", "error": err.Error()})
		default:
			s.Logger.Error("History for %s failed: %v", symbol, err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": "STORE_ERROR", "error": "failed to load history"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"bars":   len(bars),
		"from":   bars[0].Date.Format("2006-01-02"),
		"to":     bars[len(bars)-1].Date.Format("2006-01-02"),
		"events": events,
	})
}

// -----------------------------------------------------------------------------

// getRiskSize sizes a position. Query: account, atr, risk (optional), win_rate and
// payoff (optional, enable the Kelly cap).
func (s *APIServer) getRiskSize(c *gin.Context) {
	account, errA := queryFloat(c, "account", 0)
	atr, errB := queryFloat(c, "atr", 0)
	riskPerTrade, errC := queryFloat(c, "risk", s.Config.Risk.RiskPerTrade)
	if errA != nil || errB != nil || errC != nil || account <= 0 || atr <= 0 || riskPerTrade <= 0 || riskPerTrade >= 1 {
		badRequest(c, "INVALID_PARAMS", "account and atr must be positive and risk within (0, 1)")
		return
	}

	resp := gin.H{
		"shares":        risk.VolatilityAdjustedSize(account, atr, riskPerTrade),
		"stop_distance": risk.StopATRDistance * atr,
		"risk_amount":   account * riskPerTrade,
	}

	if c.Query("win_rate") != "" || c.Query("payoff") != "" {
		winRate, errW := queryFloat(c, "win_rate", 0)
		payoff, errP := queryFloat(c, "payoff", 0)
		if errW != nil || errP != nil || winRate < 0 || winRate > 1 {
			badRequest(c, "INVALID_PARAMS", "win_rate must be within [0, 1] and payoff numeric")
			return
		}
		kelly := risk.KellyFraction(winRate, payoff, s.Config.Risk.KellyFraction)
		resp["kelly_fraction"] = kelly
		resp["max_position_value"] = kelly * account
	}

	c.JSON(http.StatusOK, resp)
}
